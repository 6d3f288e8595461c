package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"asset_ledger/internal/api"
	"asset_ledger/internal/domain"
	"asset_ledger/internal/infra"
	"asset_ledger/internal/infra/feed"
	"asset_ledger/internal/infra/registry"
	"asset_ledger/internal/infra/vault"
	"asset_ledger/internal/ledger"
	"asset_ledger/internal/service"
	"asset_ledger/internal/settlement"
	"asset_ledger/internal/storage"

	"github.com/shopspring/decimal"
)

// Options are the command-line overrides applied on top of the config file.
type Options struct {
	ConfigPath string
	EnvFile    string
	Addr       string
	DBPath     string
}

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Storage  *storage.Storage
	Registry *registry.Memory
	Vault    *vault.Vault
	Ledger   *ledger.Ledger
	Catalog  *service.Catalog
	Feed     *feed.Hub
	Server   *api.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize wires configuration, storage, the sandbox registry and vault,
// the ledger and the HTTP surface.
func (b *Bootstrap) Initialize(ctx context.Context, opts Options) error {
	slog.Info("🚀 Bootstrapping Asset Ledger...")

	// 1. Environment and config
	if err := infra.LoadEnvFile(opts.EnvFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	cfg, err := infra.LoadConfig(opts.ConfigPath)
	if errors.Is(err, domain.ErrConfigNotFound) {
		slog.Warn("Config file not found, using defaults", slog.String("path", opts.ConfigPath))
		cfg, err = infra.ParseConfig(nil)
	}
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.DBPath != "" {
		cfg.Storage.Path = opts.DBPath
	}
	b.Config = cfg

	// 2. Logger
	slog.SetDefault(infra.NewLogger(cfg))

	// 3. Storage
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Sandbox registry and vault
	b.Registry = registry.NewMemory()
	b.Vault = vault.New()
	if err := b.seedGenesis(); err != nil {
		return err
	}

	// 5. Ledger
	custodian := domain.Identity(cfg.Ledger.Custodian)
	b.Feed = feed.NewHub(infra.GlobalMetrics)
	l, err := ledger.New(ledger.Config{
		ListingFee: cfg.Ledger.ListingFee,
		Settlement: settlement.NewEngine(b.Registry, b.Vault, custodian, domain.Identity(cfg.Ledger.Operator)),
		Repository: store,
		Publisher:  b.Feed,
		Metrics:    infra.GlobalMetrics,
	})
	if err != nil {
		return err
	}
	if err := l.Restore(ctx); err != nil {
		return err
	}
	b.Ledger = l
	if err := b.reseat(custodian); err != nil {
		return err
	}
	slog.Info("✅ Ledger ready", slog.String("listing_fee", cfg.Ledger.ListingFee.String()))

	// 6. HTTP surface
	b.Catalog = service.NewCatalog(l)
	b.Server = api.NewServer(cfg.Server.Addr, l, b.Catalog, b.Feed, store, infra.GlobalMetrics)

	return nil
}

// seedGenesis mints the configured assets and funds the configured accounts.
func (b *Bootstrap) seedGenesis() error {
	for _, a := range b.Config.Genesis.Assets {
		b.Registry.Mint(domain.AssetRef{Collection: a.Collection, Token: a.Token}, domain.Identity(a.Owner))
	}
	for _, acc := range b.Config.Genesis.Accounts {
		if err := b.Vault.Deposit(domain.Identity(acc.Identity), acc.Balance); err != nil {
			return fmt.Errorf("genesis account %s: %w", acc.Identity, err)
		}
	}
	slog.Info("Genesis seeded",
		slog.Int("assets", len(b.Config.Genesis.Assets)),
		slog.Int("accounts", len(b.Config.Genesis.Accounts)))
	return nil
}

// reseat moves sandbox titles to match restored records and re-escrows the
// listing fees of active listings. Records are visited in ID order so the
// newest record of an asset wins.
func (b *Bootstrap) reseat(custodian domain.Identity) error {
	escrow := decimal.Zero
	items := b.Ledger.Snapshot()
	for _, it := range items {
		switch it.State {
		case domain.StateListed:
			b.Registry.Mint(it.Asset(), custodian)
			escrow = escrow.Add(it.ListingFee)
		case domain.StateSold:
			b.Registry.Mint(it.Asset(), it.Owner)
		case domain.StateCanceled:
			b.Registry.Mint(it.Asset(), it.Seller)
		}
	}
	if escrow.IsPositive() {
		if err := b.Vault.Deposit(custodian, escrow); err != nil {
			return fmt.Errorf("re-escrow listing fees: %w", err)
		}
	}
	if len(items) > 0 {
		slog.Info("Custody reseated", slog.Int("items", len(items)), slog.String("escrow", escrow.String()))
	}
	return nil
}

// Close releases the feed and the database.
func (b *Bootstrap) Close() error {
	if b.Feed != nil {
		b.Feed.Close()
	}
	if b.Storage != nil {
		return b.Storage.Close()
	}
	return nil
}
