package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/prems/cmd/prems/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		out = &bytes.Buffer{}
		tmpDir = GinkgoT().TempDir()

		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .prems dir so the manager picks it up
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".prems"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(execute("set", "client.api_base_url", "http://chat:8000/api")).To(Succeed())

			_, err := os.Stat(filepath.Join(tmpDir, ".prems", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(ContainSubstring("client.api_base_url"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("set", "invalid_key", "value")).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(execute("set", "client.api_base_url")).To(HaveOccurred())
			Expect(execute("set")).To(HaveOccurred())
		})

		It("rejects invalid typed values", func() {
			Expect(execute("set", "client.max_line_size", "lots")).To(HaveOccurred())
			Expect(execute("set", "client.timeout", "soon")).To(HaveOccurred())
			Expect(execute("set", "client.flush_trailing", "maybe")).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(execute("set", "record.kafka_topic", "chat-events")).To(Succeed())

			out.Reset()
			Expect(execute("get", "record.kafka_topic")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("chat-events"))
		})

		It("shows unset keys", func() {
			Expect(execute("get", "record.path")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("get", "invalid_key")).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			Expect(execute("get")).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(execute("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("client.api_base_url"))
			Expect(out.String()).To(ContainSubstring("record.kafka_topic"))
		})

		It("shows values that were set", func() {
			Expect(execute("set", "log.file", "chat.log")).To(Succeed())

			out.Reset()
			Expect(execute("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`"chat.log"`))
		})

		It("rejects any arguments", func() {
			Expect(execute("list", "extra")).To(HaveOccurred())
		})
	})
})
