package shipments

import (
	"fmt"
	"strings"
	"time"
)

// Status is the operational state of a shipment. The set is closed.
type Status string

const (
	StatusNew       Status = "New"
	StatusAssigned  Status = "Assigned"
	StatusPickedUp  Status = "PickedUp"
	StatusDelivered Status = "Delivered"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusPickedUp, StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Type distinguishes own-fleet jobs from outsourced ones.
type Type string

const (
	TypeInHouse   Type = "In-House"
	TypeOutsource Type = "Outsource"
)

func ParseType(s string) (Type, error) {
	ty := Type(s)
	if !ty.Valid() {
		return "", fmt.Errorf("%w: unknown shipment type %q", ErrInvalidInput, s)
	}
	return ty, nil
}

func (t Type) Valid() bool {
	return t == TypeInHouse || t == TypeOutsource
}

const dateLayout = "2006-01-02"

// Date is a calendar day without a time component, rendered as YYYY-MM-DD.
type Date struct {
	time.Time
}

func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: bad date %q", ErrInvalidInput, s)
	}
	return Date{t}, nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(raw []byte) error {
	s := strings.Trim(string(raw), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Shipment is one freight job from collection to delivery, with its
// finance, fleet, and documentation fields. A soft-deleted shipment keeps
// its row but disappears from reads.
type Shipment struct {
	ID               string `json:"id"`
	BookingReference string `json:"booking_reference"`

	CustomerName   string `json:"customer_name"`
	CollectionFrom string `json:"collection_from"`
	DeliverTo      string `json:"deliver_to"`
	PickupDate     Date   `json:"pickup_date"`
	DeliveryDate   Date   `json:"delivery_date"`

	Status Status `json:"status"`
	Type   Type   `json:"shipment_type"`

	RevenueAmount    float64 `json:"revenue_amount"`
	CostAmount       float64 `json:"cost_amount"`
	DriverCommission float64 `json:"driver_commission"`

	LorryNo      *string `json:"lorry_no"`
	LorryCompany *string `json:"lorry_company"`
	DriverName   *string `json:"driver_name"`

	DeliveryOrderNo   *string `json:"delivery_order_no"`
	CompanyInvoiceNo  *string `json:"company_invoice_no"`
	CreditorInvoiceNo *string `json:"creditor_invoice_no"`

	PODImageURL            *string `json:"pod_image_url"`
	CreditorInvoiceFileURL *string `json:"creditor_invoice_file_url"`
	Remarks                *string `json:"remarks"`

	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	UpdatedByUserID *string    `json:"updated_by_user_id"`
	DeletedAt       *time.Time `json:"-"`
}

// CreateInput is the caller-supplied portion of a new shipment. ID, booking
// reference, and timestamps are assigned by the service.
type CreateInput struct {
	CustomerName   string
	CollectionFrom string
	DeliverTo      string
	PickupDate     Date
	DeliveryDate   Date

	Status Status
	Type   Type

	RevenueAmount    float64
	CostAmount       float64
	DriverCommission float64

	LorryNo      *string
	LorryCompany *string
	DriverName   *string

	DeliveryOrderNo   *string
	CompanyInvoiceNo  *string
	CreditorInvoiceNo *string

	PODImageURL            *string
	CreditorInvoiceFileURL *string
	Remarks                *string
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return fmt.Errorf("%w: customer_name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.CollectionFrom) == "" || strings.TrimSpace(in.DeliverTo) == "" {
		return fmt.Errorf("%w: collection_from and deliver_to are required", ErrInvalidInput)
	}
	if in.PickupDate.IsZero() || in.DeliveryDate.IsZero() {
		return fmt.Errorf("%w: pickup_date and delivery_date are required", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: shipment_type is required", ErrInvalidInput)
	}
	if in.Status != "" && !in.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	return nil
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Status *Status
	Type   *Type

	CustomerName   *string
	CollectionFrom *string
	DeliverTo      *string
	PickupDate     *Date
	DeliveryDate   *Date

	RevenueAmount    *float64
	CostAmount       *float64
	DriverCommission *float64

	LorryNo      *string
	LorryCompany *string
	DriverName   *string

	DeliveryOrderNo   *string
	CompanyInvoiceNo  *string
	CreditorInvoiceNo *string

	PODImageURL            *string
	CreditorInvoiceFileURL *string
	Remarks                *string
}

func (p Patch) validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *p.Status)
	}
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("%w: unknown shipment type %q", ErrInvalidInput, *p.Type)
	}
	return nil
}

// apply copies the set fields of p onto s.
func (p Patch) apply(s *Shipment) {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.CustomerName != nil {
		s.CustomerName = *p.CustomerName
	}
	if p.CollectionFrom != nil {
		s.CollectionFrom = *p.CollectionFrom
	}
	if p.DeliverTo != nil {
		s.DeliverTo = *p.DeliverTo
	}
	if p.PickupDate != nil {
		s.PickupDate = *p.PickupDate
	}
	if p.DeliveryDate != nil {
		s.DeliveryDate = *p.DeliveryDate
	}
	if p.RevenueAmount != nil {
		s.RevenueAmount = *p.RevenueAmount
	}
	if p.CostAmount != nil {
		s.CostAmount = *p.CostAmount
	}
	if p.DriverCommission != nil {
		s.DriverCommission = *p.DriverCommission
	}
	if p.LorryNo != nil {
		s.LorryNo = p.LorryNo
	}
	if p.LorryCompany != nil {
		s.LorryCompany = p.LorryCompany
	}
	if p.DriverName != nil {
		s.DriverName = p.DriverName
	}
	if p.DeliveryOrderNo != nil {
		s.DeliveryOrderNo = p.DeliveryOrderNo
	}
	if p.CompanyInvoiceNo != nil {
		s.CompanyInvoiceNo = p.CompanyInvoiceNo
	}
	if p.CreditorInvoiceNo != nil {
		s.CreditorInvoiceNo = p.CreditorInvoiceNo
	}
	if p.PODImageURL != nil {
		s.PODImageURL = p.PODImageURL
	}
	if p.CreditorInvoiceFileURL != nil {
		s.CreditorInvoiceFileURL = p.CreditorInvoiceFileURL
	}
	if p.Remarks != nil {
		s.Remarks = p.Remarks
	}
}
