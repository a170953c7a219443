package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jmoiron/sqlx"

	"github.com/blackdru/arena-server/internal/config"
	"github.com/blackdru/arena-server/internal/connreg"
	"github.com/blackdru/arena-server/internal/room"
	"github.com/blackdru/arena-server/internal/rpc"
	"github.com/blackdru/arena-server/internal/sessionbus"
	"github.com/blackdru/arena-server/internal/settlement"
	"github.com/blackdru/arena-server/internal/storage"
	"github.com/blackdru/arena-server/internal/wallet"
)

// matchModuleName is the identifier the room Match factory is registered
// under; the matchmaker hands it to nk.MatchCreate to spin up a room.
const matchModuleName = "arena_room"

// InitModule wires every collaborator described in SPEC_FULL.md together.
// Follows the teacher's main.go shape: build state up front, then a
// sequential RegisterXxx/RegisterRpc block where every call's error is
// logged and returned immediately.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	initStart := time.Now()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		return err
	}

	if err := storage.Migrate(db); err != nil {
		logger.Error("Failed to run migrations: %v", err)
		return err
	}

	sqlxDB := sqlx.NewDb(db, "postgres")
	ledger := wallet.New(sqlxDB)
	rooms := storage.NewRoomStore(sqlxDB)
	queue := storage.NewQueueStore(sqlxDB)

	registry := connreg.New()
	if _, err := connreg.StartJanitor(registry, "@every 30s"); err != nil {
		logger.Error("Failed to start connection registry janitor: %v", err)
		return err
	}
	onSessionStart, onSessionEnd := registerConnectionEvents(registry)
	if err := initializer.RegisterEventSessionStart(onSessionStart); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterEventSessionEnd(onSessionEnd); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}

	bus := sessionbus.New()
	settler := settlement.New(ledger)

	roomDeps := room.Deps{
		Rooms:    rooms,
		Settler:  settler,
		Registry: registry,
		Bus:      bus,
	}
	if err := initializer.RegisterMatch(matchModuleName, room.NewFactory(roomDeps)); err != nil {
		logger.Error("Unable to register match: %v", err)
		return err
	}

	sweeper := newMatchmakerRunner(sqlxDB, queue, rooms, ledger, nk)
	go sweeper.Run(ctx, cfg.MatchmakerTick)

	hooks := newSessionHooks(ledger)
	if err := initializer.RegisterAfterAuthenticateDevice(hooks.AfterAuthenticateDevice); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterAfterAuthenticateGameCenter(hooks.AfterAuthenticateGameCenter); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}

	matchmakingDeps := &rpc.Deps{Queue: queue}
	if err := initializer.RegisterRpc("joinMatchmaking", matchmakingDeps.JoinMatchmaking); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterRpc("leaveMatchmaking", matchmakingDeps.LeaveMatchmaking); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}

	roomRpcDeps := &rpc.RoomDeps{Rooms: rooms}
	if err := initializer.RegisterRpc("joinGameRoom", roomRpcDeps.JoinGameRoom); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}

	walletDeps := &rpc.WalletDeps{Ledger: ledger, Config: cfg}
	if err := initializer.RegisterRpc("reserveDeposit", walletDeps.ReserveDeposit); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterRpc("confirmDeposit", walletDeps.ConfirmDeposit); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterRpc("requestWithdrawal", walletDeps.RequestWithdrawal); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}
	if err := initializer.RegisterRpc("getBalance", walletDeps.GetBalance); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}

	adminDeps := &rpc.AdminDeps{Rooms: rooms, Ledger: ledger, Config: cfg}
	if err := initializer.RegisterRpc("cancelRoom", adminDeps.CancelRoom); err != nil {
		logger.Error("Unable to register: %v", err)
		return err
	}

	logger.Info("Plugin loaded in '%d' msec.", time.Since(initStart).Milliseconds())
	return nil
}
