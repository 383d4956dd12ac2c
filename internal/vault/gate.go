package vault

import (
	"fmt"
	"time"
)

// Intent distinguishes listing a folder's keys from fetching one specific
// secret value. The gate degrades gracefully for the former and hard-fails
// for the latter.
type Intent int

const (
	IntentBrowse Intent = iota
	IntentFetchValue
)

// GateOutcome says how much of a key the response may carry.
type GateOutcome int

const (
	// OutcomeMetadataOnly lists the key without its value field.
	OutcomeMetadataOnly GateOutcome = iota
	// OutcomeDecrypt permits decrypting and returning the plaintext value.
	OutcomeDecrypt
)

// GateValue decides whether a resolved key's plaintext may be exposed.
//
// Browse intent never errors on environment problems: an absent, invalid or
// mismatched environment simply yields metadata only. FetchValue intent
// requires a syntactically valid environment that matches the key's own,
// with expiry checked before the environment comparison so an expired key
// fails the same way no matter what environment was asked for.
func GateValue(key *Key, requestedEnv string, intent Intent, now time.Time) (GateOutcome, error) {
	if intent == IntentBrowse {
		if requestedEnv == "" {
			return OutcomeMetadataOnly, nil
		}
		env, err := ParseEnvironment(requestedEnv)
		if err != nil {
			return OutcomeMetadataOnly, nil
		}
		if env != key.Environment || key.Expired(now) {
			return OutcomeMetadataOnly, nil
		}
		return OutcomeDecrypt, nil
	}

	if requestedEnv == "" {
		return OutcomeMetadataOnly, ErrEnvironmentRequired
	}
	env, err := ParseEnvironment(requestedEnv)
	if err != nil {
		return OutcomeMetadataOnly, err
	}
	if key.Expired(now) {
		return OutcomeMetadataOnly, ErrKeyExpired
	}
	if env != key.Environment {
		return OutcomeMetadataOnly, fmt.Errorf("%w: requested %s", ErrEnvironmentMismatch, env)
	}
	return OutcomeDecrypt, nil
}
