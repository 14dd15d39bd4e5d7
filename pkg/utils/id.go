package utils

import "github.com/google/uuid"

// NewID 时间有序的 UUIDv7，同毫秒内也单调递增
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
