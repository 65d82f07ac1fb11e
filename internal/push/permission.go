package push

import (
	"log"
	"sync"

	"github.com/webshopd/shopnotify/internal/domain"
)

// Permission is the outcome of the notification permission prompt. Only
// granted proceeds to a subscription; denied and dismissed degrade to a
// nil subscription without error.
type Permission string

const (
	PermissionGranted   Permission = "granted"
	PermissionDenied    Permission = "denied"
	PermissionDismissed Permission = "dismissed"
	PermissionDefault   Permission = "default"
)

// Prompter decides the notification permission. The prompt is a one-shot
// user decision; implementations must not block indefinitely.
type Prompter interface {
	RequestPermission() Permission
}

// PolicyPrompter answers from the configured permission policy. A denial
// is persisted so the user is not re-prompted on every subscribe.
type PolicyPrompter struct {
	Config      *domain.Config
	ConfigMutex *sync.RWMutex
	SaveConfig  func() error
}

func (p *PolicyPrompter) RequestPermission() Permission {
	p.ConfigMutex.RLock()
	policy := p.Config.Main.PermissionPolicy
	p.ConfigMutex.RUnlock()

	switch policy {
	case domain.PermissionPolicyGrant:
		return PermissionGranted
	case domain.PermissionPolicyDeny:
		return PermissionDenied
	default:
		// Headless: there is nobody to ask, which matches the user
		// closing the prompt without deciding.
		log.Printf("[push] permission policy %q treated as dismissed", policy)
		return PermissionDismissed
	}
}
