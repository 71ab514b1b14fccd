package healthcmder_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	healthcmder "github.com/papercomputeco/prems/cmd/prems/health"
)

var _ = Describe("Health command", func() {
	var (
		server *httptest.Server
		status int
		path   string
		out    *bytes.Buffer
	)

	run := func() error {
		cmd := healthcmder.NewHealthCmd()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--api-base-url", server.URL + "/api"})
		return cmd.Execute()
	}

	BeforeEach(func() {
		status = http.StatusOK
		out = &bytes.Buffer{}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("creates a command with the correct use string", func() {
		Expect(healthcmder.NewHealthCmd().Use).To(Equal("health"))
	})

	It("prints the health response", func() {
		Expect(run()).To(Succeed())
		Expect(path).To(Equal("/api/health"))
		Expect(out.String()).To(ContainSubstring(`"status": "ok"`))
	})

	It("fails on a non-success status", func() {
		status = http.StatusServiceUnavailable
		Expect(run()).To(MatchError("health check failed: 503"))
	})
})
