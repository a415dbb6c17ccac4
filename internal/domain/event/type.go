package event

// Type identifies the type of domain event
type Type string

const (
	TypeInvoiceCreated Type = "invoice.created"
	TypeInvoiceDeleted Type = "invoice.deleted"
	TypeReportExported Type = "report.exported"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeInvoiceCreated,
		TypeInvoiceDeleted,
		TypeReportExported:
		return true
	default:
		return false
	}
}
