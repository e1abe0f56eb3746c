package dto

import "time"

// CreateProductRequest creates a bookable product for the calling practitioner
type CreateProductRequest struct {
	Minutes    int    `json:"minutes" binding:"required,min=5,max=480"`
	PriceCents int64  `json:"priceCents" binding:"min=0"`
	Purpose    string `json:"purpose" binding:"required"`
}

// BookAppointmentRequest books a product at a start time
type BookAppointmentRequest struct {
	ProductID int64     `json:"productId" binding:"required,min=1"`
	StartsAt  time.Time `json:"startsAt" binding:"required"`
}

// AddAvailabilityRequest opens a booking window
type AddAvailabilityRequest struct {
	StartsAt time.Time `json:"startsAt" binding:"required"`
	EndsAt   time.Time `json:"endsAt" binding:"required"`
}
