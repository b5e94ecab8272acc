package netstatus

import (
	"testing"
	"time"
)

func TestFieldCacheGetMissOnEmptyCache(t *testing.T) {
	c := newFieldCache()
	if _, fresh := c.get("nodes", time.Minute); fresh {
		t.Fatal("expected a miss on an empty cache")
	}
}

func TestFieldCacheGetFreshWithinTTL(t *testing.T) {
	c := newFieldCache()
	c.set("epoch", 42)

	v, fresh := c.get("epoch", time.Minute)
	if !fresh {
		t.Fatal("expected a fresh hit immediately after set")
	}
	if v.(int) != 42 {
		t.Fatalf("value = %v, want 42", v)
	}
}

func TestFieldCacheGetStaleAfterTTLExpires(t *testing.T) {
	c := newFieldCache()
	c.lru.Add("version", fieldEntry{value: "1.18.0", insertedAt: time.Now().Add(-time.Hour)})

	if _, fresh := c.get("version", time.Minute); fresh {
		t.Fatal("an entry older than its ttl must not report fresh")
	}
}

func TestFieldCacheGetStaleReturnsValueRegardlessOfAge(t *testing.T) {
	c := newFieldCache()
	c.lru.Add("performance", fieldEntry{value: "old-sample", insertedAt: time.Now().Add(-24 * time.Hour)})

	v, ok := c.getStale("performance")
	if !ok {
		t.Fatal("getStale must still return a long-expired entry")
	}
	if v.(string) != "old-sample" {
		t.Fatalf("value = %v, want old-sample", v)
	}
}

func TestFieldCacheGetStaleMissWhenNeverSet(t *testing.T) {
	c := newFieldCache()
	if _, ok := c.getStale("votes"); ok {
		t.Fatal("expected a miss for a key that was never set")
	}
}

func TestFieldCacheSetOverwritesPreviousValue(t *testing.T) {
	c := newFieldCache()
	c.set("nodes", "first")
	c.set("nodes", "second")

	v, fresh := c.get("nodes", time.Minute)
	if !fresh || v.(string) != "second" {
		t.Fatalf("expected the latest set value, got %v (fresh=%v)", v, fresh)
	}
}
