//go:build libsql

package libsql_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session"
	"github.com/Dev-Vis1/German-voice-llm-tutor/pkg/session/libsql"
	testutils "github.com/Dev-Vis1/German-voice-llm-tutor/pkg/utils/test"
)

var _ = Describe("Driver", func() {
	testutils.SessionDriverSpecs(func() session.Driver {
		url := "file:" + filepath.Join(GinkgoT().TempDir(), "tutor.db")
		d, err := libsql.NewDriver(context.Background(), url)
		Expect(err).NotTo(HaveOccurred())
		return d
	})
})
