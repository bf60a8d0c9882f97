package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CreateBookRequest is the JSON part of the multipart create payload. It has
// no id or owner field on purpose: whatever the client sends under those keys
// is dropped at unmarshal time and both values are always assigned
// server-side.
type CreateBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
	Genre  string `json:"genre"`
}

func (r CreateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.Required.Error("title is required"),
			validation.Length(1, 255),
		),
		validation.Field(&r.Author,
			validation.Required.Error("author is required"),
			validation.Length(1, 255),
		),
		validation.Field(&r.Year,
			validation.Required.Error("year is required"),
			validation.Min(0),
			validation.Max(9999),
		),
		validation.Field(&r.Genre,
			validation.Length(0, 100),
		),
	)
}

// UpdateBookRequest carries the metadata patch for an update. Like create,
// it cannot express id or owner changes.
type UpdateBookRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Year   *int    `json:"year"`
	Genre  *string `json:"genre"`
}

func (r UpdateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.NilOrNotEmpty.Error("title must not be empty"),
			validation.Length(1, 255),
		),
		validation.Field(&r.Author,
			validation.NilOrNotEmpty.Error("author must not be empty"),
			validation.Length(1, 255),
		),
		validation.Field(&r.Year,
			validation.Min(0),
			validation.Max(9999),
		),
		validation.Field(&r.Genre,
			validation.Length(0, 100),
		),
	)
}

// Patch converts the request into a repository patch. Image fields are
// folded in by the service when a replacement upload is present.
func (r UpdateBookRequest) Patch() BookPatch {
	return BookPatch{
		Title:  r.Title,
		Author: r.Author,
		Year:   r.Year,
		Genre:  r.Genre,
	}
}

// RateBookRequest mirrors the original wire shape: {"rating": <grade>}.
type RateBookRequest struct {
	Rating int `json:"rating"`
}
