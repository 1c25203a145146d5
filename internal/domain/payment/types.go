package payment

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// IsActive reports whether the payment counts against the at-most-one-active
// invariant for its request.
func (s Status) IsActive() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted:
		return true
	default:
		return false
	}
}

// ActiveStatuses is the set enforced by the partial unique index on
// payments(request_id).
var ActiveStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted}

type Method string

const (
	MethodPix        Method = "pix"
	MethodCreditCard Method = "credit_card"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodPix, MethodCreditCard:
		return true
	default:
		return false
	}
}
