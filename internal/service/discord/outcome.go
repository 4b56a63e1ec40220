package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Outcome is the classified result of a Discord API call.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotMember
	OutcomeUnknownGuild
	OutcomeRateLimited
	OutcomeOtherError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotMember:
		return "not_member"
	case OutcomeUnknownGuild:
		return "unknown_guild"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeOtherError:
		return "other_error"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Discord JSON error codes and messages the checks branch on.
const (
	codeUnknownGuild  = 10004
	codeUnknownMember = 10007

	msgUnknownGuild  = "Unknown Guild"
	msgUnknownMember = "Unknown Member"
)

// Response carries the provider-independent part of a classified reply.
type Response struct {
	Outcome    Outcome
	StatusCode int
	// RetryAfter is set when Outcome is OutcomeRateLimited.
	RetryAfter time.Duration
	// Message and Code echo the provider error payload, if any.
	Message string
	Code    int
}

// MemberLookup is a classified guild member reply.
type MemberLookup struct {
	Response
	UserID string
	Roles  []string
}

// GuildsLookup is a classified "my guilds" reply.
type GuildsLookup struct {
	Response
	GuildIDs []string
}

// HasGuild reports whether guildID is in the list.
func (g GuildsLookup) HasGuild(guildID string) bool {
	for _, id := range g.GuildIDs {
		if id == guildID {
			return true
		}
	}
	return false
}

type errorPayload struct {
	Message    string   `json:"message"`
	Code       *int     `json:"code"`
	RetryAfter *float64 `json:"retry_after"`
	Global     bool     `json:"global"`
}

type memberPayload struct {
	User *struct {
		ID string `json:"id"`
	} `json:"user"`
	Roles []string `json:"roles"`
}

type guildPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// classifyError maps an error object to an outcome.
// ok is false when the payload carries none of the recognized error fields.
func classifyError(p errorPayload) (Response, bool) {
	r := Response{Message: p.Message}
	if p.Code != nil {
		r.Code = *p.Code
	}
	switch {
	case p.Message == msgUnknownGuild || r.Code == codeUnknownGuild:
		r.Outcome = OutcomeUnknownGuild
	case p.Message == msgUnknownMember || r.Code == codeUnknownMember:
		r.Outcome = OutcomeNotMember
	case p.RetryAfter != nil:
		r.Outcome = OutcomeRateLimited
		r.RetryAfter = seconds(*p.RetryAfter)
	case p.Code != nil:
		r.Outcome = OutcomeOtherError
	default:
		return r, false
	}
	return r, true
}

// parseMember classifies a guild member body.
func parseMember(status int, body []byte) (MemberLookup, error) {
	var e errorPayload
	if err := json.Unmarshal(body, &e); err != nil {
		return MemberLookup{}, fmt.Errorf("decode member response: %w", err)
	}
	if r, ok := classifyError(e); ok {
		r.StatusCode = status
		return MemberLookup{Response: r}, nil
	}
	var m memberPayload
	if err := json.Unmarshal(body, &m); err != nil {
		return MemberLookup{}, fmt.Errorf("decode member response: %w", err)
	}
	if m.User == nil {
		return MemberLookup{Response: Response{Outcome: OutcomeOtherError, StatusCode: status, Message: e.Message}}, nil
	}
	return MemberLookup{
		Response: Response{Outcome: OutcomeSuccess, StatusCode: status},
		UserID:   m.User.ID,
		Roles:    m.Roles,
	}, nil
}

// parseGuilds classifies a "my guilds" body, which is a list on success.
func parseGuilds(status int, body []byte) (GuildsLookup, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var gs []guildPayload
		if err := json.Unmarshal(trimmed, &gs); err != nil {
			return GuildsLookup{}, fmt.Errorf("decode guilds response: %w", err)
		}
		ids := make([]string, 0, len(gs))
		for _, g := range gs {
			ids = append(ids, g.ID)
		}
		return GuildsLookup{Response: Response{Outcome: OutcomeSuccess, StatusCode: status}, GuildIDs: ids}, nil
	}
	var e errorPayload
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return GuildsLookup{}, fmt.Errorf("decode guilds response: %w", err)
	}
	r, ok := classifyError(e)
	if !ok {
		r.Outcome = OutcomeOtherError
	}
	r.StatusCode = status
	return GuildsLookup{Response: r}, nil
}
