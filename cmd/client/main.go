// Command client is the HeroKeeper command-line client. It works against the
// server API or, with -offline, against a local JSON journal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/atinyakov/HeroKeeper/internal/client"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

var (
	version   string
	buildDate string
)

const usage = `usage: client [flags] <command> [args]

commands:
  register                 create an account and log in
  login | logout           start or end a session
  heroes                   list heroes
  hero-add <name> <system> create a hero
  hero-rm <id>             delete a hero and its journal
  activity <heroId>        show recent activity of a hero
  export [file]            write all heroes as JSON (stdout by default)
  import <file>            import heroes from an export file
  pull                     copy the server journal into the local store
  push                     copy the local store to the server
`

type options struct {
	baseURL     string
	caFile      string
	storePath   string
	sessionFile string
	offline     bool
	replace     bool
	limit       int
}

func main() {
	var (
		opts    options
		showVer bool
	)
	fs := flag.NewFlagSet("client", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage, "\nflags:\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.baseURL, "url", "https://localhost:8080", "server base URL")
	fs.StringVar(&opts.caFile, "ca", "", "path to the CA certificate trusted for the server")
	fs.StringVar(&opts.storePath, "store", "herokeeper.json", "path to the local journal")
	fs.StringVar(&opts.sessionFile, "session", ".herokeeper-session", "file that keeps the login session")
	fs.BoolVar(&opts.offline, "offline", false, "use the local journal instead of the server")
	fs.BoolVar(&opts.replace, "replace", false, "on import, overwrite heroes that already exist")
	fs.IntVar(&opts.limit, "limit", 20, "number of activity rows to show")
	fs.BoolVar(&showVer, "version", false, "show build version and date")
	_ = fs.Parse(os.Args[1:])

	if showVer {
		fmt.Printf("HeroKeeper Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, fs.Args(), os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type app struct {
	opts   options
	in     io.Reader
	out    io.Writer
	api    *client.APIClient
	local  *client.LocalStore
	prompt *client.Prompter
}

func (a *app) remote() (*client.APIClient, error) {
	if a.api == nil {
		api, err := client.NewAPIClient(client.APIConfig{
			BaseURL:     a.opts.baseURL,
			CAFile:      a.opts.caFile,
			SessionFile: a.opts.sessionFile,
		})
		if err != nil {
			return nil, err
		}
		a.api = api
	}
	return a.api, nil
}

func (a *app) store() (*client.LocalStore, error) {
	if a.local == nil {
		s, err := client.OpenLocalStore(a.opts.storePath)
		if err != nil {
			return nil, err
		}
		a.local = s
	}
	return a.local, nil
}

func (a *app) journal() (client.Journal, error) {
	if a.opts.offline {
		return a.store()
	}
	return a.remote()
}

func run(ctx context.Context, opts options, args []string, in io.Reader, out io.Writer) error {
	a := &app{opts: opts, in: in, out: out, prompt: client.NewPrompter(in, out)}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "register", "login", "logout", "pull", "push":
		if opts.offline {
			return fmt.Errorf("%s needs the server; drop -offline", cmd)
		}
	}

	switch cmd {
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx)
	case "logout":
		api, err := a.remote()
		if err != nil {
			return err
		}
		if err := api.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out")
		return nil
	case "heroes":
		return a.heroes(ctx)
	case "hero-add":
		return a.heroAdd(ctx, rest)
	case "hero-rm":
		return a.heroRemove(ctx, rest)
	case "activity":
		return a.activity(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	case "import":
		return a.importFile(ctx, rest)
	case "pull", "push":
		return a.mirror(ctx, cmd == "pull")
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (a *app) register(ctx context.Context) error {
	cred, err := a.prompt.Credentials(true)
	if err != nil {
		return err
	}
	api, err := a.remote()
	if err != nil {
		return err
	}
	u, err := api.Register(ctx, cred)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and logged in as %s\n", u.Username)
	return nil
}

func (a *app) login(ctx context.Context) error {
	cred, err := a.prompt.Credentials(false)
	if err != nil {
		return err
	}
	api, err := a.remote()
	if err != nil {
		return err
	}
	u, err := api.Login(ctx, cred.Username, cred.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Username)
	return nil
}

func (a *app) heroes(ctx context.Context) error {
	j, err := a.journal()
	if err != nil {
		return err
	}
	heroes, err := j.ListHeroes(ctx)
	if err != nil {
		return err
	}
	if len(heroes) == 0 {
		fmt.Fprintln(a.out, "No heroes yet")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSYSTEM\tCLASS\tLEVEL")
	for _, h := range heroes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", h.ID, h.Name, h.System, h.Class, h.Level)
	}
	return tw.Flush()
}

func (a *app) heroAdd(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: hero-add <name> <system>")
	}
	j, err := a.journal()
	if err != nil {
		return err
	}
	h, err := j.CreateHero(ctx, models.HeroInput{Name: args[0], System: args[1]})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created hero %d (%s)\n", h.ID, h.Name)
	return nil
}

func parseIDArg(args []string, name string) (models.ID, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("missing <%s>", name)
	}
	return models.ParseID(args[0])
}

func (a *app) heroRemove(ctx context.Context, args []string) error {
	id, err := parseIDArg(args, "id")
	if err != nil {
		return err
	}
	j, err := a.journal()
	if err != nil {
		return err
	}
	if err := j.DeleteHero(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted hero %d\n", id)
	return nil
}

func (a *app) activity(ctx context.Context, args []string) error {
	id, err := parseIDArg(args, "heroId")
	if err != nil {
		return err
	}
	j, err := a.journal()
	if err != nil {
		return err
	}
	list, err := j.Activities(ctx, id, a.opts.limit)
	if err != nil {
		return err
	}
	for _, act := range list {
		fmt.Fprintf(a.out, "%s  %-16s %s\n", act.CreatedAt.Local().Format("2006-01-02 15:04"), act.Type, act.Message)
	}
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	j, err := a.journal()
	if err != nil {
		return err
	}
	set, err := j.ExportAll(ctx)
	if err != nil {
		return err
	}
	w := a.out
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(set)
}

func (a *app) importFile(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: import <file>")
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var set models.ExportedHeroSet
	if err := json.Unmarshal(b, &set); err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}
	j, err := a.journal()
	if err != nil {
		return err
	}
	res, err := j.ImportAll(ctx, set, a.opts.replace)
	if err != nil {
		return err
	}
	a.printResult(res)
	return nil
}

func (a *app) mirror(ctx context.Context, pull bool) error {
	api, err := a.remote()
	if err != nil {
		return err
	}
	local, err := a.store()
	if err != nil {
		return err
	}
	var res *models.ImportResult
	if pull {
		res, err = client.Copy(ctx, api, local, true)
	} else {
		res, err = client.Copy(ctx, local, api, a.opts.replace)
	}
	if err != nil {
		return err
	}
	a.printResult(res)
	return nil
}

func (a *app) printResult(res *models.ImportResult) {
	fmt.Fprintf(a.out, "Imported %d of %d heroes\n", res.Imported, res.Total)
	for _, e := range res.Errors {
		name := strings.TrimSpace(e.HeroName)
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(a.out, "  #%d %s: %s\n", e.Index, name, e.Message)
	}
}
