// Package session declares the collaborators drivers use to reach hosts,
// terminals and management consoles. The protocols behind them are supplied
// by the embedding application.
package session

import (
	"context"
	"time"
)

// Session runs shell commands on a connected host.
type Session interface {
	// Run executes cmd and returns its exit status and combined output.
	Run(ctx context.Context, cmd string, timeout time.Duration) (int, string, error)
	Close() error
}

// Conn is an authenticated connection able to open command sessions.
type Conn interface {
	OpenSession(ctx context.Context) (Session, error)
	Close() error
}

// Connector establishes connections to hosts, typically over SSH.
type Connector interface {
	Connect(ctx context.Context, host, user, passwd string, timeout time.Duration) (Conn, error)
}

// Terminal is a line oriented operator terminal, typically 3270.
type Terminal interface {
	// Login connects to host and logs user in. It returns the screen
	// output of the login sequence.
	Login(ctx context.Context, host, user, passwd string, parameters map[string]any, timeout time.Duration) (string, error)
	// SendCommand sends cmd and returns the screen output it produced.
	SendCommand(ctx context.Context, cmd string) (string, error)
	Logoff(ctx context.Context) error
}

// LPAR is a logical partition managed by a hardware management console.
type LPAR interface {
	// Status returns the partition status, for example "operating" or
	// "not-activated".
	Status(ctx context.Context) (string, error)
	// Activate activates the partition with its image profile. force
	// reactivates a partition that is already active.
	Activate(ctx context.Context, force bool) error
	Load(ctx context.Context, devicenr string) error
	SCSILoad(ctx context.Context, devicenr, wwpn, lun string) error
	Stop(ctx context.Context) error
	ResetClear(ctx context.Context) error
}

// ProfileProperties are the image profile fields drivers read or change.
type ProfileProperties struct {
	CentralStorage int `json:"central-storage"`
	SharedCP       int `json:"number-shared-general-purpose-processors"`
	SharedIFL      int `json:"number-shared-ifl-processors"`
}

// ImageProfile is an activation profile of a partition.
type ImageProfile interface {
	Properties(ctx context.Context) (ProfileProperties, error)
	Update(ctx context.Context, props ProfileProperties) error
}

// Console is an authenticated hardware management console API client.
type Console interface {
	Login(ctx context.Context, host, user, passwd string, port int, timeout time.Duration) error
	Logoff(ctx context.Context) error
	LPAR(ctx context.Context, cpc, name string) (LPAR, error)
	ImageProfile(ctx context.Context, cpc, name string) (ImageProfile, error)
}
