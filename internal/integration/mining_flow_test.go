package integration

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"ccox_dashboard/internal/domain"
	"ccox_dashboard/internal/migrations"
	"ccox_dashboard/internal/repository"
	"ccox_dashboard/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("set dialect: %v", err)
	}
	if err := goose.Up(sqlDB, "."); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	sqlDB.Close()

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func signUpUser(t *testing.T, auth *service.AuthService, referralCode string) (string, string) {
	t.Helper()
	tag := fmt.Sprintf("%d%04d", time.Now().UnixNano()%1e6, rand.Intn(10000))
	username := "it" + tag
	email := username + "@test.local"
	if _, err := auth.SignUp(context.Background(), email, "password123", username, referralCode); err != nil {
		t.Fatalf("sign up %s: %v", username, err)
	}
	return username, email
}

func TestMiningLifecycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	auth := service.NewAuthService(db, 1.0)
	swaps := service.NewSwapService(db, 7)
	// a near-instant window so the session is mature by the time we settle
	mining := service.NewMiningService(db, swaps, 2.0, time.Millisecond, 50.0)
	users := repository.NewUserRepository(db)

	username, _ := signUpUser(t, auth, "")
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}

	// completing without a session is a distinguished failure
	if _, err := mining.Complete(ctx, user.ID); err != service.ErrNoActiveSession {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}

	// start is idempotent: the second call reports the same session
	first, err := mining.Start(ctx, user.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if first.AlreadyActive {
		t.Fatal("fresh start should not report already_active")
	}
	second, err := mining.Start(ctx, user.ID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !second.AlreadyActive || second.Session.ID != first.Session.ID {
		t.Fatalf("expected the same active session back, got %+v", second)
	}

	// settlement credits the reward to the locked balance
	time.Sleep(50 * time.Millisecond)
	result, err := mining.Complete(ctx, user.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Reward != 2.0 {
		t.Fatalf("expected reward 2, got %v", result.Reward)
	}
	if result.AutoSwapped {
		t.Fatal("locked balance below threshold must not auto-swap")
	}

	user, err = users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.LockedBalance != result.LockedBalance {
		t.Fatalf("locked balance mismatch: profile %v, result %v",
			user.LockedBalance, result.LockedBalance)
	}

	// a second completion has nothing to settle
	if _, err := mining.Complete(ctx, user.ID); err != service.ErrNoActiveSession {
		t.Fatalf("expected ErrNoActiveSession after settlement, got %v", err)
	}
}

func TestCompleteBeforeWindowElapsesIsRejected(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	auth := service.NewAuthService(db, 1.0)
	swaps := service.NewSwapService(db, 7)
	mining := service.NewMiningService(db, swaps, 2.0, 24*time.Hour, 50.0)
	users := repository.NewUserRepository(db)

	username, _ := signUpUser(t, auth, "")
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}

	if _, err := mining.Start(ctx, user.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// the reward pays out on the server clock, not the client countdown
	if _, err := mining.Complete(ctx, user.ID); err != service.ErrSessionNotMatured {
		t.Fatalf("expected ErrSessionNotMatured, got %v", err)
	}

	// the session survives the rejected claim
	session, err := mining.Active(ctx, user.ID)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if session.Status != domain.SessionActive {
		t.Fatalf("expected the session still active, got %q", session.Status)
	}

	user, err = users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.LockedBalance != 0 {
		t.Fatalf("premature claim must not credit, got locked %v", user.LockedBalance)
	}
}

func TestStartCancelsAnomalousExtraSessions(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	auth := service.NewAuthService(db, 1.0)
	swaps := service.NewSwapService(db, 7)
	mining := service.NewMiningService(db, swaps, 2.0, 24*time.Hour, 50.0)
	users := repository.NewUserRepository(db)
	sessions := repository.NewMiningRepository(db)

	username, _ := signUpUser(t, auth, "")
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}

	// fabricate the anomaly: two concurrently active rows
	older, err := sessions.Create(ctx, user.ID, 2.0)
	if err != nil {
		t.Fatalf("create older session: %v", err)
	}
	time.Sleep(50 * time.Millisecond) // distinct started_at
	newer, err := sessions.Create(ctx, user.ID, 2.0)
	if err != nil {
		t.Fatalf("create newer session: %v", err)
	}

	result, err := mining.Start(ctx, user.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !result.AlreadyActive || result.Session.ID != newer.ID {
		t.Fatalf("expected the newest session resumed, got %+v", result)
	}

	active, err := sessions.ActiveSessions(ctx, user.ID)
	if err != nil {
		t.Fatalf("active sessions: %v", err)
	}
	if len(active) != 1 || active[0].ID != newer.ID {
		t.Fatalf("expected one surviving session (%d), got %+v", newer.ID, active)
	}

	history, err := sessions.HistoryByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var olderStatus domain.SessionStatus
	for _, s := range history {
		if s.ID == older.ID {
			olderStatus = s.Status
		}
	}
	if olderStatus != domain.SessionCancelled {
		t.Fatalf("expected the older session cancelled, got %q", olderStatus)
	}
}

func TestReferralBonusOnSignUp(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	auth := service.NewAuthService(db, 1.0)
	users := repository.NewUserRepository(db)
	referrals := repository.NewReferralRepository(db)

	referrerName, _ := signUpUser(t, auth, "")
	referrer, err := users.GetByUsername(ctx, referrerName)
	if err != nil {
		t.Fatalf("load referrer: %v", err)
	}
	lockedBefore := referrer.LockedBalance

	// the username doubles as the referral code
	signUpUser(t, auth, referrerName)

	referrer, err = users.GetByID(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("reload referrer: %v", err)
	}
	if got := referrer.LockedBalance - lockedBefore; got != 1.0 {
		t.Fatalf("expected +1 locked bonus, got %+v", got)
	}

	stats, err := referrals.StatsByReferrer(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReferrals != 1 || stats.TotalEarned != 1.0 {
		t.Fatalf("unexpected referral stats %+v", stats)
	}
}

func TestSwapInitiateMovesLockedBalance(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	auth := service.NewAuthService(db, 1.0)
	balances := service.NewBalanceService(db)
	swaps := service.NewSwapService(db, 7)
	users := repository.NewUserRepository(db)

	username, _ := signUpUser(t, auth, "")
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}

	if _, err := balances.AddToLocked(ctx, user.ID, 50); err != nil {
		t.Fatalf("credit locked: %v", err)
	}

	swap, err := swaps.Initiate(ctx, user.ID, 50)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if swap.Amount != 50 {
		t.Fatalf("expected swap amount 50, got %v", swap.Amount)
	}
	if !swap.CompletesAt.After(swap.InitiatedAt) {
		t.Fatalf("maturity must lie in the future: %+v", swap)
	}

	user, err = users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.LockedBalance != 0 {
		t.Fatalf("expected locked balance drained, got %v", user.LockedBalance)
	}

	// the 7-day timer has not elapsed, so completion is a no-op
	done, err := swaps.CompleteIfDue(ctx, user.ID)
	if err != nil {
		t.Fatalf("complete if due: %v", err)
	}
	if done != nil {
		t.Fatalf("swap must not complete before maturity, got %+v", done)
	}
}

func TestTransferIsAtomicWithLedger(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	auth := service.NewAuthService(db, 1.0)
	balances := service.NewBalanceService(db)
	users := repository.NewUserRepository(db)
	ledger := repository.NewTransactionRepository(db)

	senderName, _ := signUpUser(t, auth, "")
	recipientName, _ := signUpUser(t, auth, "")
	sender, _ := users.GetByUsername(ctx, senderName)
	recipient, _ := users.GetByUsername(ctx, recipientName)

	if _, err := balances.Adjust(ctx, sender.ID, "CCOX", 10); err != nil {
		t.Fatalf("fund sender: %v", err)
	}

	tx, err := balances.Transfer(ctx, sender.ID, recipient.ID, 4, "CCOX")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if tx.Amount != 4 || tx.Type != "transfer" {
		t.Fatalf("unexpected ledger row %+v", tx)
	}

	sender, _ = users.GetByID(ctx, sender.ID)
	recipient, _ = users.GetByID(ctx, recipient.ID)
	if sender.CcoxBalance != 6 || recipient.CcoxBalance != 4 {
		t.Fatalf("balances after transfer: sender %v, recipient %v",
			sender.CcoxBalance, recipient.CcoxBalance)
	}

	// overdraft leaves no trace
	if _, err := balances.Transfer(ctx, sender.ID, recipient.ID, 100, "CCOX"); err != service.ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	rows, err := ledger.GetByUser(ctx, sender.ID, 10)
	if err != nil {
		t.Fatalf("ledger read: %v", err)
	}
	for _, row := range rows {
		if row.Amount == 100 {
			t.Fatal("failed transfer must not write a ledger row")
		}
	}
}
