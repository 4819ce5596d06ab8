package e2ee

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/kamalraji/plan-it-together-sub013/internal/crypto"
	"github.com/kamalraji/plan-it-together-sub013/pkg/models"

	"github.com/google/uuid"
)

func TestGroupKeyFanOut(t *testing.T) {
	dir := &memoryDirectory{bundles: map[string]models.PublicKeyBundle{}}
	admin := newDevice(t, "usr_admin", dir)
	members := []*device{
		newDevice(t, "usr_m1", dir),
		newDevice(t, "usr_m2", dir),
		newDevice(t, "usr_m3", dir),
	}

	groupKey, err := admin.messenger.NewGroupKey()
	if err != nil {
		t.Fatalf("new group key failed: %v", err)
	}
	memberIDs := []string{"usr_m1", "usr_m2", "usr_m3"}
	grants, err := admin.messenger.WrapForMembers(context.Background(), admin.userID, "grp_picnic", 1, groupKey, memberIDs)
	if err != nil {
		t.Fatalf("fan-out failed: %v", err)
	}
	if len(grants) != len(memberIDs) {
		t.Fatalf("got %d grants, want %d", len(grants), len(memberIDs))
	}

	seen := map[string]bool{}
	for i, grant := range grants {
		if grant.GroupID != "grp_picnic" || grant.MemberID != memberIDs[i] || grant.KeyVersion != 1 {
			t.Fatalf("grant %d fields: %+v", i, grant)
		}
		if _, err := uuid.Parse(grant.GrantID); err != nil {
			t.Fatalf("grant id %q is not a uuid: %v", grant.GrantID, err)
		}
		if seen[grant.GrantID] {
			t.Fatal("grant ids must be unique")
		}
		seen[grant.GrantID] = true

		// Each member can unwrap their own grant.
		got, err := members[i].messenger.UnwrapGroupKey(context.Background(), grant)
		if err != nil {
			t.Fatalf("member %d unwrap failed: %v", i, err)
		}
		if !bytes.Equal(got, groupKey) {
			t.Fatalf("member %d recovered a different key", i)
		}
	}

	// No member can unwrap a grant addressed to someone else.
	if _, err := members[1].messenger.UnwrapGroupKey(context.Background(), grants[0]); !errors.Is(err, crypto.ErrAuthentication) {
		t.Fatalf("cross-member unwrap: expected ErrAuthentication, got %v", err)
	}
}

func TestWrapForMembersReportsPartialFailure(t *testing.T) {
	dir := &memoryDirectory{bundles: map[string]models.PublicKeyBundle{}}
	admin := newDevice(t, "usr_admin", dir)
	newDevice(t, "usr_m1", dir)

	groupKey, err := admin.messenger.NewGroupKey()
	if err != nil {
		t.Fatalf("new group key failed: %v", err)
	}
	grants, err := admin.messenger.WrapForMembers(context.Background(), admin.userID, "grp_1", 1, groupKey, []string{"usr_m1", "usr_unknown"})
	if err == nil {
		t.Fatal("expected an error naming the unreachable member")
	}
	if len(grants) != 1 || grants[0].MemberID != "usr_m1" {
		t.Fatalf("reachable member should still get a grant: %+v", grants)
	}
}

func TestWrapGroupKeyRejectsBadKeySize(t *testing.T) {
	dir := &memoryDirectory{bundles: map[string]models.PublicKeyBundle{}}
	admin := newDevice(t, "usr_admin", dir)
	newDevice(t, "usr_m1", dir)

	_, err := admin.messenger.WrapGroupKey(context.Background(), admin.userID, "grp_1", "usr_m1", 1, []byte("short"))
	if !errors.Is(err, crypto.ErrKeyFormat) {
		t.Fatalf("expected ErrKeyFormat, got %v", err)
	}
}

func TestGroupMessageRoundTrip(t *testing.T) {
	dir := &memoryDirectory{bundles: map[string]models.PublicKeyBundle{}}
	admin := newDevice(t, "usr_admin", dir)

	groupKey, err := admin.messenger.NewGroupKey()
	if err != nil {
		t.Fatalf("new group key failed: %v", err)
	}
	payload, err := admin.messenger.EncryptGroupMessage(groupKey, []byte("meeting moved to 6pm"))
	if err != nil {
		t.Fatalf("group encrypt failed: %v", err)
	}
	if payload.SchemeVersion != models.SchemeVersionSymmetric {
		t.Fatalf("scheme = %d, want symmetric", payload.SchemeVersion)
	}
	if len(payload.SenderPublicKey) != 0 {
		t.Fatal("group payloads must not embed a sender key")
	}

	got, err := admin.messenger.DecryptGroupMessage(groupKey, payload)
	if err != nil {
		t.Fatalf("group decrypt failed: %v", err)
	}
	if string(got) != "meeting moved to 6pm" {
		t.Fatalf("unexpected plaintext %q", got)
	}

	otherKey, err := admin.messenger.NewGroupKey()
	if err != nil {
		t.Fatalf("new group key failed: %v", err)
	}
	if _, err := admin.messenger.DecryptGroupMessage(otherKey, payload); !errors.Is(err, crypto.ErrAuthentication) {
		t.Fatalf("wrong key: expected ErrAuthentication, got %v", err)
	}
}

func TestGroupMessageSchemeMismatch(t *testing.T) {
	dir := &memoryDirectory{bundles: map[string]models.PublicKeyBundle{}}
	alice := newDevice(t, "usr_alice", dir)
	bob := newDevice(t, "usr_bob", dir)

	payload, err := alice.messenger.EncryptMessage(context.Background(), alice.userID, bob.userID, []byte("direct"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	groupKey, err := alice.messenger.NewGroupKey()
	if err != nil {
		t.Fatalf("new group key failed: %v", err)
	}
	if _, err := alice.messenger.DecryptGroupMessage(groupKey, payload); !errors.Is(err, models.ErrInvalidPayload) {
		t.Fatalf("asymmetric payload through group path: expected ErrInvalidPayload, got %v", err)
	}

	grant := models.GroupKeyGrant{EncryptedPayload: models.EncryptedPayload{
		Ciphertext:    payload.Ciphertext,
		Nonce:         payload.Nonce,
		SchemeVersion: models.SchemeVersionSymmetric,
	}}
	if _, err := bob.messenger.UnwrapGroupKey(context.Background(), grant); !errors.Is(err, models.ErrInvalidPayload) {
		t.Fatalf("symmetric grant through message path: expected ErrInvalidPayload, got %v", err)
	}
}
