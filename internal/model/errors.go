package model

import "errors"

var (
	// ErrNotFound is returned by stores when a record id is unknown.
	ErrNotFound = errors.New("record not found")
	// ErrSlotTaken is returned by stores when a write would give a therapist two
	// sessions in the same slot.
	ErrSlotTaken = errors.New("therapist slot already taken")
)
