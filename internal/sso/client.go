package sso

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var errNoVerdict = errors.New("provider response carries no authentication verdict")

// providerResponse is the JSON body returned by the identity endpoints.
// Providers differ in which verdict flag and which user envelope they use.
type providerResponse struct {
	Success       *bool         `json:"success"`
	Authenticated *bool         `json:"authenticated"`
	Message       string        `json:"message"`
	User          *providerUser `json:"user"`
	Data          *providerUser `json:"data"`
}

type providerUser struct {
	ID          json.RawMessage `json:"id"`
	Username    string          `json:"username"`
	Name        string          `json:"name"`
	Nama        string          `json:"nama"`
	DisplayName string          `json:"display_name"`
}

func (r providerResponse) verdict() (bool, bool) {
	if r.Success != nil {
		return *r.Success, true
	}
	if r.Authenticated != nil {
		return *r.Authenticated, true
	}
	return false, false
}

func (r providerResponse) user() *providerUser {
	if r.User != nil {
		return r.User
	}
	return r.Data
}

// attempt posts the credentials to one endpoint and classifies the result.
func attempt(ctx context.Context, client *resty.Client, endpoint, username, password string) Attempt {
	result := Attempt{Endpoint: endpoint, State: AttemptUnreached}

	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{
			"username": username,
			"password": password,
		}).
		Post(endpoint)
	if err != nil {
		result.State = AttemptUnreachable
		result.Err = err
		return result
	}

	status := resp.StatusCode()
	explicitRejectionAllowed := status == http.StatusUnauthorized || status == http.StatusForbidden
	if !resp.IsSuccess() && !explicitRejectionAllowed {
		result.State = AttemptUnreachable
		result.Err = fmt.Errorf("provider returned HTTP %d", status)
		return result
	}

	var body providerResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		result.State = AttemptUnreachable
		result.Err = fmt.Errorf("decode provider response: %w", err)
		return result
	}
	result.Message = strings.TrimSpace(body.Message)

	ok, decided := body.verdict()
	switch {
	case !decided:
		result.State = AttemptUnreachable
		result.Err = errNoVerdict
	case ok && resp.IsSuccess():
		result.State = AttemptAccepted
		result.Identity = identityFrom(body.user(), username)
	case !ok:
		result.State = AttemptRejected
	default:
		// a positive verdict on a 401/403 is contradictory
		result.State = AttemptUnreachable
		result.Err = fmt.Errorf("provider returned HTTP %d with a positive verdict", status)
	}
	return result
}

// identityFrom builds the session identity, falling back to the submitted
// username for anything the provider leaves out.
func identityFrom(user *providerUser, username string) domain.Identity {
	identity := domain.Identity{SubjectID: username, DisplayName: username}
	if user == nil {
		return identity
	}
	if id := rawID(user.ID); id != "" {
		identity.SubjectID = id
	} else if user.Username != "" {
		identity.SubjectID = user.Username
	}
	for _, name := range []string{user.DisplayName, user.Name, user.Nama} {
		if name = strings.TrimSpace(name); name != "" {
			identity.DisplayName = name
			break
		}
	}
	return identity
}

// rawID accepts ids encoded either as JSON strings or numbers.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}
