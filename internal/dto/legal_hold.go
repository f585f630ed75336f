package dto

// PlaceLegalHoldRequest places or updates a hold on one snapshot.
type PlaceLegalHoldRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}
