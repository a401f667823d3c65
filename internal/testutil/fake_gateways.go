package testutil

import (
	"context"
	"sync"

	ierr "github.com/drivekit/billing/internal/errors"
	"github.com/drivekit/billing/internal/gateway"
)

// StorageCall records one ChangeStorage invocation.
type StorageCall struct {
	UserUUID string
	Bytes    int64
}

// WorkspaceCall records one workspace storage invocation.
type WorkspaceCall struct {
	UserUUID string
	Bytes    int64
	Seats    int
}

// FakeDriveClient records every storage-gateway call. WorkspaceExists
// controls whether UpdateWorkspaceStorage reports the workspace as
// missing, forcing the initialize path.
type FakeDriveClient struct {
	mu sync.Mutex

	WorkspaceExists bool

	StorageCalls       []StorageCall
	WorkspaceUpdates   []WorkspaceCall
	WorkspaceInits     []gateway.WorkspaceInit
	LegacyUserUpserts  []StorageCall
	TierLabelUpdates   []string
	PaymentFailedUsers []string
}

func NewFakeDriveClient() *FakeDriveClient {
	return &FakeDriveClient{WorkspaceExists: true}
}

func (f *FakeDriveClient) ChangeStorage(_ context.Context, userUUID string, bytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StorageCalls = append(f.StorageCalls, StorageCall{UserUUID: userUUID, Bytes: bytes})
	return nil
}

func (f *FakeDriveClient) UpdateWorkspaceStorage(_ context.Context, userUUID string, bytes int64, seats int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.WorkspaceExists {
		return ierr.NewError("workspace not found").
			WithHint("The user has no workspace yet").
			Mark(ierr.ErrNotFound)
	}
	f.WorkspaceUpdates = append(f.WorkspaceUpdates, WorkspaceCall{UserUUID: userUUID, Bytes: bytes, Seats: seats})
	return nil
}

func (f *FakeDriveClient) InitializeWorkspace(_ context.Context, _ string, init gateway.WorkspaceInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WorkspaceInits = append(f.WorkspaceInits, init)
	f.WorkspaceExists = true
	return nil
}

func (f *FakeDriveClient) CreateOrUpdateUser(_ context.Context, email string, bytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LegacyUserUpserts = append(f.LegacyUserUpserts, StorageCall{UserUUID: email, Bytes: bytes})
	return nil
}

func (f *FakeDriveClient) UpdateUserTier(_ context.Context, _ string, tierLabel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TierLabelUpdates = append(f.TierLabelUpdates, tierLabel)
	return nil
}

func (f *FakeDriveClient) SendPaymentFailedNotice(_ context.Context, userUUID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PaymentFailedUsers = append(f.PaymentFailedUsers, userUUID)
	return nil
}

// LastStorageBytes returns the bytes of the most recent ChangeStorage
// call, or -1 when none happened.
func (f *FakeDriveClient) LastStorageBytes() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.StorageCalls) == 0 {
		return -1
	}
	return f.StorageCalls[len(f.StorageCalls)-1].Bytes
}

// FakeVPNClient records feature toggles.
type FakeVPNClient struct {
	mu       sync.Mutex
	Enabled  []string
	Disabled []string
}

func NewFakeVPNClient() *FakeVPNClient { return &FakeVPNClient{} }

func (f *FakeVPNClient) EnableFeature(_ context.Context, _, featureID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Enabled = append(f.Enabled, featureID)
	return nil
}

func (f *FakeVPNClient) DisableFeature(_ context.Context, _, featureID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Disabled = append(f.Disabled, featureID)
	return nil
}

// FakeObjectStorageClient records account operations. Existing marks
// customers whose CreateAccount should conflict.
type FakeObjectStorageClient struct {
	mu sync.Mutex

	Existing map[string]bool

	Created     []string
	Reactivated []string
	Suspended   []string
	Deleted     []string
}

func NewFakeObjectStorageClient() *FakeObjectStorageClient {
	return &FakeObjectStorageClient{Existing: make(map[string]bool)}
}

func (f *FakeObjectStorageClient) CreateAccount(_ context.Context, customerID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Existing[customerID] {
		return ierr.NewError("account already provisioned").
			WithHint("An object storage account already exists for this customer").
			Mark(ierr.ErrAlreadyExists)
	}
	f.Existing[customerID] = true
	f.Created = append(f.Created, customerID)
	return nil
}

func (f *FakeObjectStorageClient) Reactivate(_ context.Context, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactivated = append(f.Reactivated, customerID)
	return nil
}

func (f *FakeObjectStorageClient) Suspend(_ context.Context, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Suspended = append(f.Suspended, customerID)
	return nil
}

func (f *FakeObjectStorageClient) Delete(_ context.Context, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, customerID)
	return nil
}
