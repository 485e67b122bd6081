package notify

import "strings"

// Provider reason codes that mean the token will never work again.
var permanentReasons = map[string]struct{}{
	"unregistered":                      {},
	"registration-token-not-registered": {},
	"not-found":                         {},
}

// Lowercased fragments of provider error messages with the same meaning,
// for transports that do not expose a structured code.
var permanentFragments = []string{
	"not registered",
	"unregistered",
	"registration-token-not-registered",
	"requested entity was not found",
}

// IsPermanentFailure reports whether a failed push result identifies a dead
// token. Successful results and unknown failures are never permanent.
func IsPermanentFailure(r PushResult) bool {
	if r.Success {
		return false
	}

	if _, ok := permanentReasons[strings.ToLower(strings.TrimSpace(r.Reason))]; ok {
		return true
	}

	if r.Err == nil {
		return false
	}

	msg := strings.ToLower(r.Err.Error())
	for _, fragment := range permanentFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
