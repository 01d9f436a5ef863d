package pam360

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a PAM360 identifier. The API sends ids as strings in some endpoints
// and as numbers in others.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id should be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

type Resource struct {
	ID          ID     `json:"RESOURCE ID"`
	Name        string `json:"RESOURCE NAME"`
	Type        string `json:"RESOURCE TYPE,omitempty"`
	Description string `json:"RESOURCE DESCRIPTION,omitempty"`
	DNSName     string `json:"DNS NAME,omitempty"`
}

type Account struct {
	ID             ID     `json:"ACCOUNT ID"`
	Name           string `json:"ACCOUNT NAME"`
	PasswordStatus string `json:"PASSWORD STATUS,omitempty"`
}

type resourceAccounts struct {
	ResourceID   ID        `json:"RESOURCE ID"`
	ResourceName string    `json:"RESOURCE NAME"`
	Accounts     []Account `json:"ACCOUNT LIST"`
}

type resourceIdentity struct {
	ResourceID ID `json:"RESOURCEID"`
	AccountID  ID `json:"ACCOUNTID,omitempty"`
}

// NewResource creates a resource together with its first account.
type NewResource struct {
	Name                   string `json:"RESOURCENAME"`
	AccountName            string `json:"ACCOUNTNAME"`
	Type                   string `json:"RESOURCETYPE"`
	Password               string `json:"PASSWORD"`
	DNSName                string `json:"DNSNAME"`
	ResourcePasswordPolicy string `json:"RESOURCEPASSWORDPOLICY"`
	AccountPasswordPolicy  string `json:"ACCOUNTPASSWORDPOLICY"`
	GroupName              string `json:"RESOURCEGROUPNAME"`
}

type NewAccount struct {
	Name           string `json:"ACCOUNTNAME"`
	Password       string `json:"PASSWORD"`
	PasswordPolicy string `json:"ACCOUNTPASSWORDPOLICY"`
}

type newAccounts struct {
	Accounts []NewAccount `json:"ACCOUNTLIST"`
}

type PasswordReset struct {
	NewPassword string `json:"NEWPASSWORD"`
	ResetType   string `json:"RESETTYPE"`
	Reason      string `json:"REASON"`
}

type Share struct {
	AccessType string `json:"ACCESSTYPE"`
	UserID     string `json:"USERID"`
}

// FindResource returns the first resource named exactly name.
func FindResource(resources []Resource, name string) (Resource, bool) {
	for _, r := range resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// FindAccount returns the first account named exactly name.
func FindAccount(accounts []Account, name string) (Account, bool) {
	for _, a := range accounts {
		if a.Name == name {
			return a, true
		}
	}
	return Account{}, false
}
