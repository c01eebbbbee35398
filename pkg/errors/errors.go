package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeSourceFetch represents a storefront page that could not be loaded
	ErrorTypeSourceFetch ErrorType = "source_fetch"
	// ErrorTypeImageFetch represents a product image that could not be downloaded
	ErrorTypeImageFetch ErrorType = "image_fetch"
	// ErrorTypeImageDecode represents image bytes that could not be decoded
	ErrorTypeImageDecode ErrorType = "image_decode"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeDelivery represents a failed send to the chat channel
	ErrorTypeDelivery ErrorType = "delivery"
	// ErrorTypeLock represents pass lock backend errors
	ErrorTypeLock ErrorType = "lock"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ShopError represents a typed error raised by one of the bot components
type ShopError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *ShopError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *ShopError) Unwrap() error {
	return e.Err
}

// New creates a new ShopError
func New(errType ErrorType, component, message string, err error) *ShopError {
	return &ShopError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewSourceFetch creates a new storefront fetch error
func NewSourceFetch(component, message string, err error) *ShopError {
	return New(ErrorTypeSourceFetch, component, message, err)
}

// NewImageFetch creates a new image download error
func NewImageFetch(url, message string, err error) *ShopError {
	return New(ErrorTypeImageFetch, url, message, err)
}

// NewImageDecode creates a new image decode error
func NewImageDecode(url string, err error) *ShopError {
	return New(ErrorTypeImageDecode, url, "cannot decode image", err)
}

// NewParsing creates a new parsing error
func NewParsing(component, message string, err error) *ShopError {
	return New(ErrorTypeParsing, component, message, err)
}

// NewDelivery creates a new delivery error
func NewDelivery(platform, message string, err error) *ShopError {
	return New(ErrorTypeDelivery, platform, message, err)
}

// NewLock creates a new lock backend error
func NewLock(backend, message string, err error) *ShopError {
	return New(ErrorTypeLock, backend, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ShopError {
	return New(ErrorTypeConfiguration, "config", message, err)
}

// IsType reports whether any error in err's chain is a ShopError of the given type
func IsType(err error, errType ErrorType) bool {
	var shopErr *ShopError
	if stderrors.As(err, &shopErr) {
		return shopErr.Type == errType
	}
	return false
}
