package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/autoservice/internal/client/api"
	"github.com/dmitrijs2005/autoservice/internal/client/session"
)

const (
	KeyPrefix = "profile:"
	LegacyKey = "profile"
	// DefaultKey is used before anyone has signed in.
	DefaultKey = KeyPrefix + "default"
)

// LocalOnlyWarning is reported when an update reached local storage but
// not the backend.
const LocalOnlyWarning = "Saved on this device only. The server could not be reached, so other devices will not see the change yet."

type Profile struct {
	ID        int64  `json:"id,omitempty"`
	UserID    int64  `json:"userId,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`

	IsFromBackend bool   `json:"isFromBackend"`
	LastSynced    string `json:"lastSynced,omitempty"`
}

// Update is a partial profile edit; nil fields are left unchanged.
type Update struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	City      *string `json:"city,omitempty"`
}

func (u Update) apply(p Profile) Profile {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.FirstName, u.FirstName)
	set(&p.LastName, u.LastName)
	set(&p.Email, u.Email)
	set(&p.Phone, u.Phone)
	set(&p.Address, u.Address)
	set(&p.City, u.City)
	return p
}

// Result describes where GetCurrent or Update got its data from.
type Result struct {
	Success bool
	Data    Profile

	FromBackend bool
	// IsMock marks data that did not come from the backend.
	IsMock bool
	// IsNew marks a profile synthesized from the session identity.
	IsNew bool
	// IsEmpty marks a blank profile returned without a session.
	IsEmpty bool

	Warning string
}

// StorageKey derives the record key for an identity, preferring the
// numeric id over the email.
func StorageKey(ident session.Identity, ok bool) string {
	switch {
	case ok && ident.ID > 0:
		return KeyPrefix + strconv.FormatInt(ident.ID, 10)
	case ok && strings.TrimSpace(ident.Email) != "":
		return KeyPrefix + strings.ToLower(strings.TrimSpace(ident.Email))
	default:
		return DefaultKey
	}
}

// mergeRemote applies the backend's record to the local one. Every member
// the backend sent wins, including empty strings and null, which clear the
// field. Members it did not send keep their local value, and the local-only
// sync markers are never taken from the backend.
func mergeRemote(local Profile, remote map[string]json.RawMessage) (Profile, error) {
	raw, err := json.Marshal(local)
	if err != nil {
		return Profile{}, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Profile{}, err
	}

	for k, v := range remote {
		if k == "isFromBackend" || k == "lastSynced" {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			delete(fields, k)
			continue
		}
		fields[k] = v
	}

	raw, err = json.Marshal(fields)
	if err != nil {
		return Profile{}, err
	}
	var out Profile
	if err := json.Unmarshal(raw, &out); err != nil {
		return Profile{}, fmt.Errorf("%w: profile: %v", api.ErrMalformedResponse, err)
	}
	return out, nil
}

func fromIdentity(ident session.Identity, now string) Profile {
	return Profile{
		UserID:    ident.ID,
		FirstName: ident.FirstName,
		LastName:  ident.LastName,
		Email:     ident.Email,
		Phone:     ident.Phone,
		Role:      ident.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
