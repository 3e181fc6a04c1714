package enums

import "fmt"

// UniqueItemStatus maps to the unique_item_status enum in Postgres.
type UniqueItemStatus string

const (
	UniqueItemStatusAvailable UniqueItemStatus = "available"
	UniqueItemStatusSold      UniqueItemStatus = "sold"
)

var validUniqueItemStatuses = []UniqueItemStatus{
	UniqueItemStatusAvailable,
	UniqueItemStatusSold,
}

// String implements fmt.Stringer.
func (s UniqueItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known UniqueItemStatus.
func (s UniqueItemStatus) IsValid() bool {
	for _, candidate := range validUniqueItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseUniqueItemStatus converts raw input into a UniqueItemStatus.
func ParseUniqueItemStatus(value string) (UniqueItemStatus, error) {
	for _, candidate := range validUniqueItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unique item status %q", value)
}
