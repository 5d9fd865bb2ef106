package utils

import "github.com/google/uuid"

func GenerateUUIDString() string {
	return uuid.New().String()
}

// GenerateSessionID returns a new opaque seat-selection session token.
func GenerateSessionID() string {
	return uuid.New().String()
}
