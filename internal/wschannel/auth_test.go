package wschannel

import "testing"

func TestIssueToken_VerifyRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := IssueToken(secret, "user-1", "website-1", "flow-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := NewHMACVerifier(secret)
	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.WebsiteID != "website-1" || claims.FlowID != "flow-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerify_WrongSecretRejected(t *testing.T) {
	token, err := IssueToken("secret-a", "user-1", "website-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	verifier := NewHMACVerifier("secret-b")
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected verification failure with mismatched secret")
	}
}

func TestVerify_MissingClaimsRejected(t *testing.T) {
	token, err := IssueToken("secret", "", "", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	verifier := NewHMACVerifier("secret")
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected rejection of token missing userId/websiteId")
	}
}
