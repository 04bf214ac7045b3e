package queue

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Scheme is the URI scheme of queue and content names.
const Scheme = "nxqueue"

var queueNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// NewQueueName returns the URI naming queue.
func NewQueueName(queue string) (*url.URL, error) {
	if !queueNamePattern.MatchString(queue) {
		return nil, fmt.Errorf("%w: queue %q", ErrInvalidName, queue)
	}
	return &url.URL{Scheme: Scheme, Opaque: queue}, nil
}

// NewContentName returns the URI naming item inside queue.
func NewContentName(queue, item string) (*url.URL, error) {
	u, err := NewQueueName(queue)
	if err != nil {
		return nil, err
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	u.Fragment = item
	return u, nil
}

// MustQueueName is NewQueueName for names known to be valid.
func MustQueueName(queue string) *url.URL {
	u, err := NewQueueName(queue)
	if err != nil {
		panic(err)
	}
	return u
}

// MustContentName is NewContentName for names known to be valid.
func MustContentName(queue, item string) *url.URL {
	u, err := NewContentName(queue, item)
	if err != nil {
		panic(err)
	}
	return u
}

// ParseName parses a queue or content URI.
func ParseName(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if _, err := QueueNameOf(u); err != nil {
		return nil, err
	}
	if u.Fragment != "" {
		if err := validateItem(u.Fragment); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// ParseOwner parses an owner URI. Owners may use any scheme.
func ParseOwner(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", ErrInvalidName, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: owner %q is not an absolute URI", ErrInvalidName, raw)
	}
	return u, nil
}

// QueueNameOf extracts the queue name from a queue or content URI.
func QueueNameOf(name *url.URL) (string, error) {
	if name == nil {
		return "", fmt.Errorf("%w: nil name", ErrInvalidName)
	}
	if name.Scheme != Scheme {
		return "", fmt.Errorf("%w: %q does not use the %s scheme", ErrInvalidName, name.String(), Scheme)
	}
	if !queueNamePattern.MatchString(name.Opaque) {
		return "", fmt.Errorf("%w: %q has no queue name", ErrInvalidName, name.String())
	}
	return name.Opaque, nil
}

// ItemOf returns the item part of a content URI.
func ItemOf(name *url.URL) (string, error) {
	if _, err := QueueNameOf(name); err != nil {
		return "", err
	}
	if err := validateItem(name.Fragment); err != nil {
		return "", err
	}
	return name.Fragment, nil
}

func validateItem(item string) error {
	if strings.TrimSpace(item) == "" {
		return fmt.Errorf("%w: empty item name", ErrInvalidName)
	}
	for _, r := range item {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: item %q contains control characters", ErrInvalidName, item)
		}
	}
	return nil
}
