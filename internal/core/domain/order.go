package domain

// DemandLine is one outbound order line still needing stock.
type DemandLine struct {
	DemandLineID string
	ProductID    string
	QtyNeeded    int
}

// PickListRequest is the outbound demand a pick list is generated for.
type PickListRequest struct {
	OrderID    string
	ClientID   string
	LocationID string
	Priority   int
	Lines      []DemandLine
	ActorID    string
}

func (r PickListRequest) Validate() error {
	if r.LocationID == "" {
		return invalid("location_id", "required")
	}
	if len(r.Lines) == 0 {
		return invalid("lines", "at least one demand line is required")
	}
	for _, l := range r.Lines {
		if l.ProductID == "" {
			return invalid("lines.product_id", "required")
		}
		if l.QtyNeeded <= 0 {
			return invalid("lines.qty_needed", "must be positive")
		}
	}
	return nil
}

// LineAllocation summarizes how much of one demand line was covered.
type LineAllocation struct {
	DemandLineID string
	ProductID    string
	Requested    int
	Allocated    int
	Shortfall    int
}
