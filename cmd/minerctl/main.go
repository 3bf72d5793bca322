// minerctl is a terminal dashboard for a CCOX account: it signs in, renders
// balances and drives the mining countdown against a running API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ccox_dashboard/internal/client"
	"ccox_dashboard/internal/dashboard"
	"ccox_dashboard/internal/logger"
	"ccox_dashboard/internal/miner"

	"github.com/google/uuid"
)

func main() {
	var (
		server    = flag.String("server", "http://localhost:8080", "API server base URL")
		email     = flag.String("email", "", "account email (or set CCOX_TOKEN)")
		password  = flag.String("password", "", "account password")
		identity  = flag.String("identity", "", "OAuth identity id; provisions a profile on first sign-in")
		name      = flag.String("name", "", "display name used when provisioning")
		referral  = flag.String("referral", "", "invite code, stashed until a profile is provisioned")
		cachePath = flag.String("cache", defaultCachePath(), "local state file")
		start     = flag.Bool("start", false, "start a mining session if idle")
	)
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"), false)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := miner.NewCache(*cachePath)
	if *referral != "" {
		cache.SetPendingReferral(*referral)
	}

	c := client.New(*server)
	if token := os.Getenv("CCOX_TOKEN"); token != "" {
		c.SetToken(token)
	} else if *identity == "" && *email != "" {
		if _, err := c.SignIn(ctx, *email, *password); err != nil {
			logger.Fatal("sign-in failed", "error", err)
		}
	}

	var ident *client.Identity
	if *identity != "" {
		id, err := uuid.Parse(*identity)
		if err != nil {
			logger.Fatal("invalid identity id", "error", err)
		}
		ident = cache.OAuthIdentity(id, *email, *name)
	}

	sess, err := client.Bootstrap(ctx, c, ident)
	if err != nil {
		logger.Fatal("not signed in", "error", err)
	}
	defer sess.Close()

	view := &terminalView{}

	binder := dashboard.NewBinder(sess, cache, view)
	binder.OnBalancesUpdated(func(locked float64) {
		fmt.Printf("locked balance updated: %.2f CCOX\n", locked)
	})
	binder.Bind(ctx)

	ctrl := miner.NewController(sess, cache, view)
	if err := ctrl.Reconcile(ctx); err != nil {
		logger.Fatal("reconciliation failed", "error", err)
	}

	if *start && ctrl.State() == miner.StateIdle {
		if err := ctrl.Start(ctx); err != nil {
			logger.Fatal("failed to start mining", "error", err)
		}
	}

	if ctrl.State() != miner.StateActive {
		fmt.Println("no mining session running")
		return
	}

	fmt.Printf("mining until %s\n", ctrl.EndsAt().Local())
	ctrl.Run(ctx)
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "ccox-dashboard.json")
}

// terminalView renders both the dashboard fields and the mining countdown
// to stdout.
type terminalView struct {
	lastLine string
}

func (v *terminalView) SetUsername(name string) { fmt.Printf("account: %s\n", name) }

func (v *terminalView) SetCcoxBalance(s string) { fmt.Printf("CCOX:    %s\n", s) }

func (v *terminalView) SetUsdtBalance(s string) { fmt.Printf("USDT:    %s\n", s) }

func (v *terminalView) SetLockedBalance(s string) { fmt.Printf("locked:  %s\n", s) }

func (v *terminalView) SetTotalUsers(s string) { fmt.Printf("miners:  %s\n", s) }

func (v *terminalView) SetTotalShares(s string) { fmt.Printf("shares:  %s\n", s) }

func (v *terminalView) SetActive(active bool) {
	if !active && v.lastLine != "" {
		fmt.Println()
		v.lastLine = ""
	}
}

func (v *terminalView) SetProgress(fraction float64) {
	v.lastLine = fmt.Sprintf("%5.1f%%", fraction*100)
}

func (v *terminalView) SetHashRate(rate float64) {
	if rate > 0 {
		v.lastLine += fmt.Sprintf("  %6.1f H/s", rate)
	}
}

func (v *terminalView) SetRemaining(remaining string) {
	if remaining != "" {
		fmt.Printf("\r%s  %s remaining", v.lastLine, remaining)
	}
}

func (v *terminalView) Notify(message string) {
	fmt.Printf("\n%s\n", message)
}
