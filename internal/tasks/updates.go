package tasks

import (
	"fmt"

	"github.com/desertthunder/plexwrapped/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase            // Operation phase
	State   models.AuthState // Login state; empty outside login phases
	Step    int              // Current step number within phase
	Total   int              // Total steps in this phase
	Message string           // Human-readable message for display
	Data    any              // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	CreatePin Phase = iota
	WaitPin
	ExchangeClaim
	SignIn
	ValidateToken
	FetchServers
	ProbeServers
	FetchHistory
	BuildSummary
)

func (p Phase) String() string {
	switch p {
	case CreatePin:
		return "create_pin"
	case WaitPin:
		return "wait_pin"
	case ExchangeClaim:
		return "exchange_claim"
	case SignIn:
		return "sign_in"
	case ValidateToken:
		return "validate_token"
	case FetchServers:
		return "fetch_servers"
	case ProbeServers:
		return "probe_servers"
	case FetchHistory:
		return "fetch_history"
	case BuildSummary:
		return "summarize"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

func pinCreatedUpdate(pin models.Pin, authURL string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePin,
		State:   models.AuthCreated,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Enter code %s at %s", pin.Code, authURL),
		Data:    pin,
	}
}

func pinPendingUpdate(attempt int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WaitPin,
		State:   models.AuthPending,
		Step:    attempt,
		Message: "Waiting for authorization...",
	}
}

func pinAuthorizedUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   WaitPin,
		State:   models.AuthAuthorized,
		Step:    1,
		Total:   1,
		Message: "PIN authorized",
	}
}

func claimUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExchangeClaim,
		State:   models.AuthPending,
		Step:    1,
		Total:   1,
		Message: "Exchanging claim token...",
	}
}

func signInUpdate(login string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SignIn,
		State:   models.AuthPending,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Signing in as %s...", login),
	}
}

func validatedUpdate(user models.User) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ValidateToken,
		State:   models.AuthValidated,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Signed in as %s", user.Username),
		Data:    user,
	}
}

func loginFailedUpdate(phase Phase, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		State:   models.AuthFailed,
		Message: fmt.Sprintf("Login failed: %v", err),
	}
}

func fetchServersUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchServers,
		Step:    1,
		Total:   1,
		Message: "Fetching servers from plex.tv...",
	}
}

func probeServersUpdate(servers []models.Server) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProbeServers,
		Step:    0,
		Total:   len(servers),
		Message: fmt.Sprintf("Listing libraries on %d server(s)...", len(servers)),
		Data:    servers,
	}
}

func foundLibrariesUpdate(total int, libs []models.MusicLibrary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProbeServers,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Found %d music library(ies)", len(libs)),
		Data:    libs,
	}
}

func fetchHistoryUpdate(lib models.MusicLibrary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching play history for %s on %s...", lib.Library.Title, lib.Server.Name),
	}
}

func summarizeUpdate(records int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildSummary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Summarizing %d play(s)...", records),
	}
}
