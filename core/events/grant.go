package events

import (
	"encoding/hex"
	"strconv"
)

const (
	TypeGrantCreated       = "grant.created"
	TypeGrantFunded        = "grant.funded"
	TypeGrantClaimed       = "grant.claimed"
	TypeGrantClosed        = "grant.closed"
	TypeGrantPauseChanged  = "grant.pause_changed"
	TypeGrantRootUpdated   = "grant.allowlist_root_updated"
	TypeGrantPopConfigured = "grant.pop_signer_configured"
)

type GrantCreated struct {
	Authority       [32]byte
	Token           string
	GrantID         uint64
	AmountPerPeriod uint64
	PeriodSeconds   int64
	StartTs         int64
	ExpiresAt       int64
}

func (GrantCreated) EventType() string { return TypeGrantCreated }

func (e GrantCreated) Attributes() map[string]string {
	return map[string]string{
		"authority":       hex.EncodeToString(e.Authority[:]),
		"token":           e.Token,
		"grantId":         strconv.FormatUint(e.GrantID, 10),
		"amountPerPeriod": strconv.FormatUint(e.AmountPerPeriod, 10),
		"periodSeconds":   strconv.FormatInt(e.PeriodSeconds, 10),
		"startTs":         strconv.FormatInt(e.StartTs, 10),
		"expiresAt":       strconv.FormatInt(e.ExpiresAt, 10),
	}
}

type GrantFunded struct {
	Grant  [32]byte
	Funder [32]byte
	Token  string
	Amount uint64
}

func (GrantFunded) EventType() string { return TypeGrantFunded }

func (e GrantFunded) Attributes() map[string]string {
	return map[string]string{
		"grant":  hex.EncodeToString(e.Grant[:]),
		"funder": hex.EncodeToString(e.Funder[:]),
		"token":  e.Token,
		"amount": strconv.FormatUint(e.Amount, 10),
	}
}

type GrantClaimed struct {
	Grant       [32]byte
	Claimer     [32]byte
	Token       string
	Amount      uint64
	PeriodIndex uint64
	ClaimedAt   int64
	EntryHash   [32]byte
}

func (GrantClaimed) EventType() string { return TypeGrantClaimed }

func (e GrantClaimed) Attributes() map[string]string {
	return map[string]string{
		"grant":       hex.EncodeToString(e.Grant[:]),
		"claimer":     hex.EncodeToString(e.Claimer[:]),
		"token":       e.Token,
		"amount":      strconv.FormatUint(e.Amount, 10),
		"periodIndex": strconv.FormatUint(e.PeriodIndex, 10),
		"claimedAt":   strconv.FormatInt(e.ClaimedAt, 10),
		"entryHash":   hex.EncodeToString(e.EntryHash[:]),
	}
}

type GrantClosed struct {
	Grant    [32]byte
	Token    string
	Refunded uint64
}

func (GrantClosed) EventType() string { return TypeGrantClosed }

func (e GrantClosed) Attributes() map[string]string {
	return map[string]string{
		"grant":    hex.EncodeToString(e.Grant[:]),
		"token":    e.Token,
		"refunded": strconv.FormatUint(e.Refunded, 10),
	}
}

type GrantPauseChanged struct {
	Grant  [32]byte
	Paused bool
}

func (GrantPauseChanged) EventType() string { return TypeGrantPauseChanged }

func (e GrantPauseChanged) Attributes() map[string]string {
	return map[string]string{
		"grant":  hex.EncodeToString(e.Grant[:]),
		"paused": strconv.FormatBool(e.Paused),
	}
}

type GrantRootUpdated struct {
	Grant [32]byte
	Root  [32]byte
}

func (GrantRootUpdated) EventType() string { return TypeGrantRootUpdated }

func (e GrantRootUpdated) Attributes() map[string]string {
	return map[string]string{
		"grant": hex.EncodeToString(e.Grant[:]),
		"root":  hex.EncodeToString(e.Root[:]),
	}
}

type GrantPopConfigured struct {
	Authority [32]byte
	Signer    [32]byte
}

func (GrantPopConfigured) EventType() string { return TypeGrantPopConfigured }

func (e GrantPopConfigured) Attributes() map[string]string {
	return map[string]string{
		"authority": hex.EncodeToString(e.Authority[:]),
		"signer":    hex.EncodeToString(e.Signer[:]),
	}
}
