package shipmentsapi

import (
	"fmt"

	"freight/cmd/internal/shipments"
)

type createRequest struct {
	CustomerName   string          `json:"customer_name"`
	CollectionFrom string          `json:"collection_from"`
	DeliverTo      string          `json:"deliver_to"`
	PickupDate     shipments.Date  `json:"pickup_date"`
	DeliveryDate   shipments.Date  `json:"delivery_date"`
	Status         string          `json:"status,omitempty"`
	ShipmentType   string          `json:"shipment_type"`

	RevenueAmount    float64 `json:"revenue_amount"`
	CostAmount       float64 `json:"cost_amount"`
	DriverCommission float64 `json:"driver_commission"`

	LorryNo      *string `json:"lorry_no,omitempty"`
	LorryCompany *string `json:"lorry_company,omitempty"`
	DriverName   *string `json:"driver_name,omitempty"`

	DeliveryOrderNo   *string `json:"delivery_order_no,omitempty"`
	CompanyInvoiceNo  *string `json:"company_invoice_no,omitempty"`
	CreditorInvoiceNo *string `json:"creditor_invoice_no,omitempty"`

	PODImageURL            *string `json:"pod_image_url,omitempty"`
	CreditorInvoiceFileURL *string `json:"creditor_invoice_file_url,omitempty"`
	Remarks                *string `json:"remarks,omitempty"`
}

func (req createRequest) toInput() (shipments.CreateInput, error) {
	in := shipments.CreateInput{
		CustomerName:   req.CustomerName,
		CollectionFrom: req.CollectionFrom,
		DeliverTo:      req.DeliverTo,
		PickupDate:     req.PickupDate,
		DeliveryDate:   req.DeliveryDate,

		RevenueAmount:    req.RevenueAmount,
		CostAmount:       req.CostAmount,
		DriverCommission: req.DriverCommission,

		LorryNo:      req.LorryNo,
		LorryCompany: req.LorryCompany,
		DriverName:   req.DriverName,

		DeliveryOrderNo:   req.DeliveryOrderNo,
		CompanyInvoiceNo:  req.CompanyInvoiceNo,
		CreditorInvoiceNo: req.CreditorInvoiceNo,

		PODImageURL:            req.PODImageURL,
		CreditorInvoiceFileURL: req.CreditorInvoiceFileURL,
		Remarks:                req.Remarks,
	}

	if req.ShipmentType != "" {
		ty, err := shipments.ParseType(req.ShipmentType)
		if err != nil {
			return shipments.CreateInput{}, err
		}
		in.Type = ty
	}
	if req.Status != "" {
		st, err := shipments.ParseStatus(req.Status)
		if err != nil {
			return shipments.CreateInput{}, err
		}
		in.Status = st
	}
	return in, nil
}

type patchRequest struct {
	Status       *string `json:"status,omitempty"`
	ShipmentType *string `json:"shipment_type,omitempty"`

	CustomerName   *string         `json:"customer_name,omitempty"`
	CollectionFrom *string         `json:"collection_from,omitempty"`
	DeliverTo      *string         `json:"deliver_to,omitempty"`
	PickupDate     *shipments.Date `json:"pickup_date,omitempty"`
	DeliveryDate   *shipments.Date `json:"delivery_date,omitempty"`

	RevenueAmount    *float64 `json:"revenue_amount,omitempty"`
	CostAmount       *float64 `json:"cost_amount,omitempty"`
	DriverCommission *float64 `json:"driver_commission,omitempty"`

	LorryNo      *string `json:"lorry_no,omitempty"`
	LorryCompany *string `json:"lorry_company,omitempty"`
	DriverName   *string `json:"driver_name,omitempty"`

	DeliveryOrderNo   *string `json:"delivery_order_no,omitempty"`
	CompanyInvoiceNo  *string `json:"company_invoice_no,omitempty"`
	CreditorInvoiceNo *string `json:"creditor_invoice_no,omitempty"`

	PODImageURL            *string `json:"pod_image_url,omitempty"`
	CreditorInvoiceFileURL *string `json:"creditor_invoice_file_url,omitempty"`
	Remarks                *string `json:"remarks,omitempty"`
}

func (req patchRequest) toPatch() (shipments.Patch, error) {
	p := shipments.Patch{
		CustomerName:   req.CustomerName,
		CollectionFrom: req.CollectionFrom,
		DeliverTo:      req.DeliverTo,
		PickupDate:     req.PickupDate,
		DeliveryDate:   req.DeliveryDate,

		RevenueAmount:    req.RevenueAmount,
		CostAmount:       req.CostAmount,
		DriverCommission: req.DriverCommission,

		LorryNo:      req.LorryNo,
		LorryCompany: req.LorryCompany,
		DriverName:   req.DriverName,

		DeliveryOrderNo:   req.DeliveryOrderNo,
		CompanyInvoiceNo:  req.CompanyInvoiceNo,
		CreditorInvoiceNo: req.CreditorInvoiceNo,

		PODImageURL:            req.PODImageURL,
		CreditorInvoiceFileURL: req.CreditorInvoiceFileURL,
		Remarks:                req.Remarks,
	}

	if req.Status != nil {
		st, err := shipments.ParseStatus(*req.Status)
		if err != nil {
			return shipments.Patch{}, err
		}
		p.Status = &st
	}
	if req.ShipmentType != nil {
		ty, err := shipments.ParseType(*req.ShipmentType)
		if err != nil {
			return shipments.Patch{}, err
		}
		p.Type = &ty
	}
	if p == (shipments.Patch{}) {
		return shipments.Patch{}, fmt.Errorf("%w: empty patch", shipments.ErrInvalidInput)
	}
	return p, nil
}
