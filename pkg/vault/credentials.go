package vault

import "github.com/aquactl/aquactl/pkg/model"

// SealedTelnetCredentials is the export-safe form of
// model.TelnetCredentials: the password is sealed, never plaintext.
type SealedTelnetCredentials struct {
	Username       string `json:"username"`
	SealedPassword string `json:"sealed_password"`
}

// SealTelnetCredentials seals c's password for inclusion in a
// snapshot or report export. Returns nil if c is nil.
func (v *Vault) SealTelnetCredentials(c *model.TelnetCredentials) (*SealedTelnetCredentials, error) {
	if c == nil {
		return nil, nil
	}
	sealed, err := v.Seal(c.Password)
	if err != nil {
		return nil, err
	}
	return &SealedTelnetCredentials{Username: c.Username, SealedPassword: sealed}, nil
}

// OpenTelnetCredentials reverses SealTelnetCredentials. Returns nil if
// sc is nil.
func (v *Vault) OpenTelnetCredentials(sc *SealedTelnetCredentials) (*model.TelnetCredentials, error) {
	if sc == nil {
		return nil, nil
	}
	password, err := v.Open(sc.SealedPassword)
	if err != nil {
		return nil, err
	}
	return &model.TelnetCredentials{Username: sc.Username, Password: password}, nil
}
