package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Address is the ledger account identity of a patient or doctor. It is
// the unique key in both directories and the actor identity in every
// authorization decision.
type Address string

// EmptyAddress is what the ledger returns for an unset address slot.
const EmptyAddress Address = "0x0000000000000000000000000000000000000000"

func (a Address) IsZero() bool {
	return a == "" || a == EmptyAddress
}

// IsValid does a shape check only; it does not prove the account exists.
func (a Address) IsValid() bool {
	s := string(a)
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func (a Address) String() string {
	return string(a)
}

type UserType string

const (
	UserTypePatient UserType = "patient"
	UserTypeDoctor  UserType = "doctor"
	UserTypeAdmin   UserType = "admin"
)

func (t UserType) IsValid() bool {
	switch t {
	case UserTypePatient, UserTypeDoctor, UserTypeAdmin:
		return true
	}
	return false
}

// User is the off-chain login account. The ledger identity it maps to is
// the Address; everything clinical hangs off that, not off the user row.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name         string   `gorm:"column:name;type:varchar(100);not null"`
	Email        string   `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string   `gorm:"column:password_hash;type:varchar(255);not null"`
	Address      Address  `gorm:"column:address;type:varchar(42);uniqueIndex;not null"`
	UserType     UserType `gorm:"column:user_type;type:varchar(20);not null;index"`

	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}

func (User) TableName() string {
	return "auth.users"
}

type AuditAction string

const (
	ActionCreate    AuditAction = "create"
	ActionRead      AuditAction = "read"
	ActionUpdate    AuditAction = "update"
	ActionDelete    AuditAction = "delete"
	ActionWhitelist AuditAction = "whitelist"
	ActionLogin     AuditAction = "login"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	Actor    Address  `gorm:"column:actor;type:varchar(42);not null;index"`
	UserType UserType `gorm:"column:user_type;type:varchar(20)"`

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(64);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`
	IPAddress string `gorm:"column:ip_address;type:varchar(45)"`
	Outcome   string `gorm:"column:outcome;type:varchar(30)"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

// Claims is the authenticated identity attached to a request after the
// session token is verified.
type Claims struct {
	Email    string   `json:"email"`
	Address  Address  `json:"address"`
	UserType UserType `json:"user_type"`
}
