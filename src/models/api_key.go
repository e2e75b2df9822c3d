package models

import (
	"time"

	"github.com/google/uuid"
)

// ApiKey represents an API credential owned by exactly one account.
// KeyValue is the plaintext credential; it is globally unique and never
// regenerated after creation (rename does not rotate).
type ApiKey struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"-"`
	Name        string    `json:"name"`
	KeyValue    string    `json:"key_value,omitempty"`
	Tier        Tier      `json:"tier"`
	CreditsUsed int       `json:"credits_used"`
	CreatedAt   time.Time `json:"created_at"`
}

// KeyDescriptor is the redacted representation returned by validation.
// It deliberately has no field for the plaintext value.
type KeyDescriptor struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Tier Tier      `json:"tier"`
}

// Descriptor returns the redacted descriptor for the key.
func (k *ApiKey) Descriptor() KeyDescriptor {
	return KeyDescriptor{
		ID:   k.ID,
		Name: k.Name,
		Tier: k.Tier,
	}
}

// MaskedValue returns the key value with everything past the prefix hidden
// except the last four characters, e.g. "solang_...d4f2".
func (k *ApiKey) MaskedValue() string {
	const visible = 4
	if len(k.KeyValue) <= len(KeyPrefix)+visible {
		return k.KeyValue
	}
	return KeyPrefix + "..." + k.KeyValue[len(k.KeyValue)-visible:]
}

// Redacted returns a copy of the key with the plaintext value masked.
func (k *ApiKey) Redacted() ApiKey {
	clone := *k
	clone.KeyValue = k.MaskedValue()
	return clone
}
