package profile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/wms-engine/internal/core/domain"
)

// Document is the on-disk shape of a workflow profiles file:
//
//	clients:
//	  acme:
//	    inspection_criteria:
//	      - code: seal_intact
//	        label: Seal intact
//	        required: true
type Document struct {
	Clients map[string]ClientProfile `yaml:"clients"`
}

type ClientProfile struct {
	InspectionCriteria []domain.Criterion `yaml:"inspection_criteria"`
}

// Profiles serves per-client workflow settings loaded once at startup.
type Profiles struct {
	clients map[string]ClientProfile
}

// Parse decodes and validates a profiles document. An empty payload yields
// no profiles.
func Parse(data []byte) (*Profiles, error) {
	p := &Profiles{clients: map[string]ClientProfile{}}
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("profiles: decode: %w", err)
	}
	for client, cp := range doc.Clients {
		seen := make(map[string]bool, len(cp.InspectionCriteria))
		for i, c := range cp.InspectionCriteria {
			code := strings.TrimSpace(c.Code)
			if code == "" {
				return nil, fmt.Errorf("profiles: client %s: criterion %d has no code", client, i)
			}
			if seen[code] {
				return nil, fmt.Errorf("profiles: client %s: duplicate criterion %q", client, code)
			}
			seen[code] = true
			cp.InspectionCriteria[i].Code = code
		}
		p.clients[client] = cp
	}
	return p, nil
}

// LoadFile reads a profiles document from disk.
func LoadFile(path string) (*Profiles, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profiles: read %s: %w", path, err)
	}
	p, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func (p *Profiles) InspectionCriteria(ctx context.Context, clientID string) ([]domain.Criterion, error) {
	cp, ok := p.clients[clientID]
	if !ok {
		return nil, nil
	}
	return append([]domain.Criterion(nil), cp.InspectionCriteria...), nil
}
