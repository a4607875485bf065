package runctx

import "testing"

func TestNewSeedsExactlyIterationUrlsGlobal(t *testing.T) {
	global := map[string]interface{}{"token": "abc"}
	urls := map[string]string{"api": "https://example.com"}

	rc := New(global, urls, 3)

	if rc["iteration"] != "3" {
		t.Fatalf("expected iteration to be stringified, got %v (%T)", rc["iteration"], rc["iteration"])
	}

	globalCopy, ok := rc["global"].(map[string]interface{})
	if !ok || globalCopy["token"] != "abc" {
		t.Fatalf("expected global to be nested under its own key, got %v", rc["global"])
	}

	urlsCopy, ok := rc["urls"].(map[string]interface{})
	if !ok || urlsCopy["api"] != "https://example.com" {
		t.Fatalf("expected urls to be nested under its own key, got %v", rc["urls"])
	}

	if _, leaked := rc["token"]; leaked {
		t.Fatal("global values must not be flattened onto the context root")
	}

	global["token"] = "mutated"
	if globalCopy["token"] != "abc" {
		t.Fatal("New should copy global, not alias it")
	}
}

func TestCookiesAccumulate(t *testing.T) {
	rc := New(nil, nil, 0)
	rc.SetCookie("session", "xyz")
	rc.SetCookie("theme", "dark")

	jar := rc.Cookies()
	if jar["session"] != "xyz" || jar["theme"] != "dark" {
		t.Fatalf("expected both cookies to be present, got %v", jar)
	}
}

func TestCloneGivesWithItemsIsolatedTopLevelMap(t *testing.T) {
	rc := New(map[string]interface{}{"a": 1}, nil, 0)
	clone := rc.Clone()
	clone["item"] = "x"

	if _, ok := rc["item"]; ok {
		t.Fatal("mutating the clone must not affect the original context")
	}
}
