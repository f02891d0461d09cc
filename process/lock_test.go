package process

import "testing"

func TestFileLockMutualExclusion(t *testing.T) {
	owner, err := newFileLock()
	if err != nil {
		t.Fatalf("newFileLock: %v", err)
	}
	defer owner.close()

	other, err := openFileLock(owner.path)
	if err != nil {
		t.Fatalf("openFileLock: %v", err)
	}
	defer other.close()

	if owner.Locked() {
		t.Fatal("expected lock to start unheld")
	}

	owner.Lock()
	if !other.Locked() {
		t.Fatal("expected a second open-file-description to observe the lock as held")
	}
	owner.Unlock()

	if other.Locked() {
		t.Fatal("expected lock to be free again after Unlock")
	}
}

func TestSharedRegionRoundTrip(t *testing.T) {
	region, err := newSharedRegion()
	if err != nil {
		t.Fatalf("newSharedRegion: %v", err)
	}
	defer func() {
		region.detach()
	}()

	region.st.available = 3
	region.st.current = 5
	bump(&region.st.workGen)

	attached, err := attachSharedRegion(region.path)
	if err != nil {
		t.Fatalf("attachSharedRegion: %v", err)
	}
	defer attached.detach()

	if attached.st.available != 3 || attached.st.current != 5 {
		t.Fatalf("expected available=3 current=5, got available=%d current=%d",
			attached.st.available, attached.st.current)
	}
	if attached.st.workGen != 1 {
		t.Fatalf("expected workGen=1, got %d", attached.st.workGen)
	}
}
