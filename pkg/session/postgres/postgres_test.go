package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session/postgres"
	testutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/utils/test"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("TUTOR_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("TUTOR_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	testutils.SessionDriverSpecs(func() session.Driver {
		ctx := context.Background()
		d, err := postgres.NewDriver(ctx, connStr())
		Expect(err).NotTo(HaveOccurred())

		_, err = d.DB().ExecContext(ctx, `TRUNCATE tutor_turns, tutor_sessions`)
		Expect(err).NotTo(HaveOccurred())
		return d
	})

	It("fails fast when the server is unreachable", func() {
		_, err := postgres.NewDriver(context.Background(), "postgres://tutor@127.0.0.1:1/tutor?sslmode=disable&connect_timeout=1")
		Expect(err).To(MatchError(ContainSubstring("failed to ping database")))
	})
})
