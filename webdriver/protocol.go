package webdriver

import "github.com/ethereum-optimism/infra/op-browsertest/types"

type valueResponse[T any] struct {
	Value T `json:"value"`
}

type errorResponse struct {
	Value struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"value"`
}

// newSessionResponse covers both the W3C shape, where the ID is inside value,
// and the legacy JSON wire protocol, where it is top level.
type newSessionResponse struct {
	SessionID string `json:"sessionId"`
	Value     struct {
		SessionID string `json:"sessionId"`
	} `json:"value"`
}

type newSessionBody struct {
	Capabilities struct {
		AlwaysMatch map[string]any `json:"alwaysMatch"`
	} `json:"capabilities"`
	DesiredCapabilities map[string]any `json:"desiredCapabilities"`
}

// newSessionRequest builds a body accepted by both W3C and legacy servers
func newSessionRequest(c types.Capability, username, accessKey string) newSessionBody {
	var body newSessionBody
	always := map[string]any{}
	desired := map[string]any{}

	if c.BrowserName != "" {
		always["browserName"] = c.BrowserName
		desired["browserName"] = c.BrowserName
	}
	if c.BrowserVersion != "" {
		always["browserVersion"] = c.BrowserVersion
		desired["version"] = c.BrowserVersion
	}
	if c.Platform != "" {
		always["platformName"] = c.Platform
		desired["platform"] = c.Platform
	}
	if username != "" {
		desired["username"] = username
		desired["accessKey"] = accessKey
	}

	body.Capabilities.AlwaysMatch = always
	body.DesiredCapabilities = desired
	return body
}
