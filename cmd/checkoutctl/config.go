package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Darshan-360/service-checkout/internal/client"
	"github.com/Darshan-360/service-checkout/internal/repository"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ctlConfig is read from flags first, then CHECKOUT_* environment variables.
type ctlConfig struct {
	APIURL             string
	UserID             string
	AppwriteEndpoint   string
	AppwriteProject    string
	AppwriteDatabase   string
	AppwriteJWT        string
	BookingsCollection string
	PaymentsCollection string
	ShadowDB           string
	Verbose            bool
}

func addGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("api-url", "http://localhost:8787", "Base URL of the checkout endpoints")
	f.String("user-id", "", "Signed-in user id")
	f.String("appwrite-endpoint", "", "Appwrite endpoint for fallback writes")
	f.String("appwrite-project", "", "Appwrite project id")
	f.String("appwrite-database", "", "Appwrite database id")
	f.String("appwrite-jwt", "", "Session JWT of the signed-in user")
	f.String("bookings-collection", "bookings", "Bookings collection id")
	f.String("payments-collection", "payments", "Payments collection id")
	f.String("shadow-db", defaultShadowPath(), "SQLite file holding local booking copies")
	f.BoolP("verbose", "v", false, "Log fallback activity")
}

func defaultShadowPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".checkoutctl", "shadow.db")
	}
	return filepath.Join(home, ".checkoutctl", "shadow.db")
}

func loadConfig(cmd *cobra.Command) (*ctlConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("CHECKOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	return &ctlConfig{
		APIURL:             v.GetString("api-url"),
		UserID:             v.GetString("user-id"),
		AppwriteEndpoint:   v.GetString("appwrite-endpoint"),
		AppwriteProject:    v.GetString("appwrite-project"),
		AppwriteDatabase:   v.GetString("appwrite-database"),
		AppwriteJWT:        v.GetString("appwrite-jwt"),
		BookingsCollection: v.GetString("bookings-collection"),
		PaymentsCollection: v.GetString("payments-collection"),
		ShadowDB:           v.GetString("shadow-db"),
		Verbose:            v.GetBool("verbose"),
	}, nil
}

func (c *ctlConfig) logger() *zap.Logger {
	if !c.Verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// userStore returns the record store scoped to the user's session. Without a session every
// fallback write reports not configured and bookings go to the shadow copy.
func (c *ctlConfig) userStore(logger *zap.Logger) *repository.RecordStore {
	var docs repository.Documents
	if c.AppwriteEndpoint != "" && c.AppwriteProject != "" && c.AppwriteDatabase != "" && c.AppwriteJWT != "" {
		docs = repository.NewAppwriteDocuments(repository.AppwriteCredentials{
			Endpoint:   c.AppwriteEndpoint,
			ProjectID:  c.AppwriteProject,
			DatabaseID: c.AppwriteDatabase,
			JWT:        c.AppwriteJWT,
		}, nil)
	}
	return repository.NewRecordStore(docs, c.BookingsCollection, c.PaymentsCollection, logger)
}

// session holds the pieces every checkout command needs.
type session struct {
	cfg    *ctlConfig
	logger *zap.Logger
	store  *repository.RecordStore
	shadow *client.SQLiteShadowStore
	flow   *client.Flow
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cfg.logger()

	shadow, err := client.NewSQLiteShadowStore(cfg.ShadowDB)
	if err != nil {
		return nil, fmt.Errorf("open shadow store: %w", err)
	}

	store := cfg.userStore(logger)
	writer := client.NewFallbackWriter(store, shadow, logger)
	return &session{
		cfg:    cfg,
		logger: logger,
		store:  store,
		shadow: shadow,
		flow:   client.NewFlow(client.NewAPIClient(cfg.APIURL, nil), writer, logger),
	}, nil
}

func (s *session) Close() {
	_ = s.shadow.Close()
	_ = s.logger.Sync()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(cmd *cobra.Command, report client.FallbackReport) {
	if !report.BookingAttempted && !report.PaymentAttempted {
		return
	}
	out := cmd.ErrOrStderr()
	if report.BookingAttempted {
		switch {
		case report.BookingWritten:
			fmt.Fprintln(out, "fallback: booking written")
		case report.BookingShadowed:
			fmt.Fprintf(out, "fallback: booking kept locally (%v)\n", report.BookingErr)
		default:
			fmt.Fprintf(out, "fallback: booking not written (%v)\n", report.BookingErr)
		}
	}
	if report.PaymentAttempted {
		if report.PaymentWritten {
			fmt.Fprintln(out, "fallback: payment written")
		} else {
			fmt.Fprintf(out, "fallback: payment not written (%v)\n", report.PaymentErr)
		}
	}
}
