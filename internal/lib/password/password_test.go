package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	h := NewHasher(minCost)

	digest, err := h.Hash("Abcd1234")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !h.Verify("Abcd1234", digest) {
		t.Fatalf("correct password rejected")
	}
	if h.Verify("wrong", digest) {
		t.Fatalf("wrong password accepted")
	}
}

func TestVerify_MalformedDigest(t *testing.T) {
	t.Parallel()

	h := NewHasher(minCost)

	if h.Verify("anything", []byte("not-a-bcrypt-digest")) {
		t.Fatalf("malformed digest verified")
	}
	if h.Verify("anything", nil) {
		t.Fatalf("nil digest verified")
	}
}

func TestNewHasher_CostFloor(t *testing.T) {
	t.Parallel()

	h := NewHasher(4)
	if h.cost != minCost {
		t.Fatalf("cost below floor not raised: got %d", h.cost)
	}
}
