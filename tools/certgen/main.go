// Package main generates a development certificate authority and a server
// certificate signed by it, writing them under the "certs" directory. An
// existing CA is reused so clients that already trust it keep working.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/HeroKeeper/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, splitHosts(*hosts), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func splitHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// run writes ca.crt, ca.key, server.crt and server.key into dir.
func run(dir string, hosts []string, out io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	caCert, caKey := filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key")

	ca, err := certgen.Load(caCert, caKey)
	switch {
	case err == nil:
		fmt.Fprintln(out, "Reusing CA from", caCert)
	case errors.Is(err, os.ErrNotExist):
		ca, err = certgen.NewCA("HeroKeeper Dev CA", 10*365*24*time.Hour)
		if err != nil {
			return err
		}
		if err := ca.WriteFiles(caCert, caKey); err != nil {
			return err
		}
	default:
		return err
	}

	srv, err := certgen.IssueServer(ca, hosts, 365*24*time.Hour)
	if err != nil {
		return err
	}
	srvCert, srvKey := filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")
	if err := srv.WriteFiles(srvCert, srvKey); err != nil {
		return err
	}

	fmt.Fprintf(out, "Certificates written to %s\n", dir)
	fmt.Fprintf(out, "  server: TLS_CERT_FILE=%s TLS_KEY_FILE=%s\n", srvCert, srvKey)
	fmt.Fprintf(out, "  client: -ca %s\n", caCert)
	return nil
}
