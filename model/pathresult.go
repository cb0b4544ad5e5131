package model

// ResultStatus is the overall outcome of a computation.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusNoPath  ResultStatus = "no-path"
	StatusError   ResultStatus = "error"
)

// FailureKind classifies why a computation produced no path.
type FailureKind string

const (
	FailureMalformedRequest      FailureKind = "MalformedRequest"
	FailureNoEligibleEndpoint    FailureKind = "NoEligibleEndpoint"
	FailureSpectrumExhausted     FailureKind = "SpectrumExhausted"
	FailureBandwidthExhausted    FailureKind = "BandwidthExhausted"
	FailureSearchExhausted       FailureKind = "SearchExhausted"
	FailureInternalInconsistency FailureKind = "InternalInconsistency"
)

// Side identifies an end of the requested service.
type Side string

const (
	SideA Side = "A"
	SideZ Side = "Z"
)

// FailureCause is the structured reason attached to a failed PathResult.
type FailureCause struct {
	Kind            FailureKind `json:"kind"`
	Side            Side        `json:"side,omitempty"`
	BottleneckLinks []string    `json:"bottleneck_links,omitempty"`
	Detail          string      `json:"detail,omitempty"`
}

// PathHop is one traversed link.
type PathHop struct {
	LinkID string `json:"link_id"`
	Kind   string `json:"kind"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// SpectrumAssignment is the frequency block assigned to a photonic path.
type SpectrumAssignment struct {
	Slots     SlotRange `json:"slots"`
	CenterTHz float64   `json:"center_thz"`
	WidthGHz  float64   `json:"width_ghz"`
}

// Reservation is one committed resource on one link. Bidirectional paths
// carry a reservation for every link and its opposite.
type Reservation struct {
	LinkID        string     `json:"link_id"`
	Slots         *SlotRange `json:"slots,omitempty"`
	BandwidthMbps int64      `json:"bandwidth_mbps,omitempty"`
}

// PathMetrics are accumulated along the chosen path.
type PathMetrics struct {
	LatencyUs       float64 `json:"latency_us"`
	OSNRdB          float64 `json:"osnr_db,omitempty"`
	WorstSpanLossDB float64 `json:"worst_span_loss_db"`
	TotalSpanLossDB float64 `json:"total_span_loss_db"`
	CDPsPerNm       float64 `json:"cd_ps_nm"`
	PMDPs           float64 `json:"pmd_ps"`
	Hops            int     `json:"hops"`
	Cost            float64 `json:"cost"`
}

// PathResult is the immutable outcome of one computation.
type PathResult struct {
	RequestID     string       `json:"request_id"`
	ComputationID string       `json:"computation_id"`
	Status        ResultStatus `json:"status"`
	ServiceType   ServiceType  `json:"service_type,omitempty"`

	AEndPort string    `json:"a_end_port,omitempty"`
	ZEndPort string    `json:"z_end_port,omitempty"`
	Hops     []PathHop `json:"hops,omitempty"`

	Spectrum      *SpectrumAssignment `json:"spectrum,omitempty"`
	BandwidthMbps int64               `json:"bandwidth_mbps,omitempty"`
	Reservations  []Reservation       `json:"reservations,omitempty"`

	Metrics  PathMetrics   `json:"metrics"`
	Warnings []string      `json:"warnings,omitempty"`
	Cause    *FailureCause `json:"cause,omitempty"`
}

// Succeeded reports whether a path was found.
func (r *PathResult) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// LinkIDs returns the traversed link IDs in order.
func (r *PathResult) LinkIDs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Hops))
	for _, h := range r.Hops {
		out = append(out, h.LinkID)
	}
	return out
}
