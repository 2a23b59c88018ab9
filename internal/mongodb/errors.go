package mongodb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrMissingURI is the configuration error returned when the connection string
// is unset or blank. No connection attempt is made.
var ErrMissingURI = errors.New("missing MongoDB connection string: set MONGODB_URI (or its configured parameter)")

// codeAuthenticationFailed is the server error code for a rejected credential.
const codeAuthenticationFailed = 18

// Category classifies a failed connection attempt.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryAuthentication
	CategoryUnreachable
	CategoryTimeout
	CategoryAccessList
	CategoryInvalidURI
	CategoryServerSelection
)

func (c Category) String() string {
	switch c {
	case CategoryAuthentication:
		return "authentication"
	case CategoryUnreachable:
		return "unreachable"
	case CategoryTimeout:
		return "timeout"
	case CategoryAccessList:
		return "access_list"
	case CategoryInvalidURI:
		return "invalid_uri"
	case CategoryServerSelection:
		return "server_selection"
	default:
		return "unknown"
	}
}

// ConnectionError is a categorized connection failure.
type ConnectionError struct {
	Category Category
	Err      error
}

func (e *ConnectionError) Error() string {
	switch e.Category {
	case CategoryAuthentication:
		return "Authentication failed. Check your MongoDB credentials."
	case CategoryUnreachable:
		return "Cannot reach MongoDB server. Check your connection string."
	case CategoryTimeout:
		return "Connection timeout. MongoDB server may be down or unreachable."
	case CategoryAccessList:
		return "IP address not whitelisted in MongoDB Atlas."
	case CategoryInvalidURI:
		return "Invalid MongoDB connection string format."
	case CategoryServerSelection:
		return "Cannot connect to MongoDB. Server may be down."
	default:
		return fmt.Sprintf("MongoDB connection error: %v", e.Err)
	}
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// classifyRule matches either a typed driver error or, failing that, the
// lowercased error text. Rules are evaluated in order.
type classifyRule struct {
	category Category
	typed    func(error) bool
	text     func(string) bool
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var classifyRules = []classifyRule{
	{
		category: CategoryAuthentication,
		typed: func(err error) bool {
			var se mongo.ServerError
			return errors.As(err, &se) && se.HasErrorCode(codeAuthenticationFailed)
		},
		text: func(msg string) bool {
			return containsAny(msg, "bad auth", "authentication failed")
		},
	},
	{
		category: CategoryUnreachable,
		typed: func(err error) bool {
			var dnsErr *net.DNSError
			return errors.As(err, &dnsErr)
		},
		text: func(msg string) bool {
			return containsAny(msg, "enotfound", "getaddrinfo", "no such host")
		},
	},
	{
		category: CategoryTimeout,
		typed: func(err error) bool {
			return mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded)
		},
		text: func(msg string) bool {
			return containsAny(msg, "timeout", "timed out")
		},
	},
	{
		category: CategoryAccessList,
		text: func(msg string) bool {
			return strings.Contains(msg, "ip") && strings.Contains(msg, "whitelist")
		},
	},
	{
		category: CategoryInvalidURI,
		text: func(msg string) bool {
			return containsAny(msg, "invalid connection string", "uri must", "error parsing uri")
		},
	},
	{
		category: CategoryServerSelection,
		text: func(msg string) bool {
			return strings.Contains(msg, "server selection")
		},
	},
}

// classify translates a driver failure into a ConnectionError. Typed errors
// are preferred; the message substrings are kept for errors the driver only
// reports as text (SCRAM failures inside a topology description, Atlas
// access-list rejections).
func classify(err error) *ConnectionError {
	msg := strings.ToLower(err.Error())
	for _, rule := range classifyRules {
		if (rule.typed != nil && rule.typed(err)) || rule.text(msg) {
			return &ConnectionError{Category: rule.category, Err: err}
		}
	}
	return &ConnectionError{Category: CategoryUnknown, Err: err}
}
