// Package fitctl implements the fittrack operations tool: key generation,
// one-off field encryption and decryption, token minting and avatar uploads.
package fitctl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/cryptox"
	"github.com/dmitrijs2005/fittrack/internal/flagx"
	"github.com/dmitrijs2005/fittrack/internal/netx"
	"github.com/dmitrijs2005/fittrack/internal/server/auth"
	"github.com/dmitrijs2005/fittrack/internal/server/config"
)

const encryptionKeyEnv = "ENCRYPTION_KEY"

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// ErrUsage is returned for an unknown or missing subcommand.
var ErrUsage = errors.New("usage: fitctl <keygen|encrypt|decrypt|token|upload> [flags]")

type App struct {
	in        *bufio.Reader
	out       io.Writer
	prompt    io.Writer
	lookupEnv func(string) (string, bool)
	client    *http.Client
}

func NewApp(in io.Reader, out, prompt io.Writer, lookupEnv func(string) (string, bool)) *App {
	return &App{in: bufio.NewReader(in), out: out, prompt: prompt, lookupEnv: lookupEnv}
}

// Run dispatches args[0] to its subcommand.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "keygen":
		return a.keygen(rest)
	case "encrypt":
		return a.encrypt(rest)
	case "decrypt":
		return a.decrypt(rest)
	case "token":
		return a.token(rest)
	case "upload":
		return a.upload(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, ErrUsage)
	}
}

func (a *App) keygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(a.prompt)
	size := fs.Int("n", config.EncryptionKeySize, "key size in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *size < 16 {
		return fmt.Errorf("key size must be at least 16 bytes, got %d", *size)
	}

	key, err := common.MakeRandHexString(*size)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, key)
	return err
}

func (a *App) encrypt(args []string) error {
	c, value, fields, err := a.cipherAndValue("encrypt", args, "Value to encrypt")
	if err != nil {
		return err
	}
	if fields != nil {
		obj, err := decodeObject(value)
		if err != nil {
			return err
		}
		enc, err := c.EncryptObjectFields(obj, fields)
		if err != nil {
			return err
		}
		return a.writeObject(enc)
	}
	bundle, err := c.EncryptField(value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, bundle)
	return err
}

func (a *App) decrypt(args []string) error {
	c, bundle, fields, err := a.cipherAndValue("decrypt", args, "Bundle to decrypt (iv:tag:ciphertext)")
	if err != nil {
		return err
	}
	if fields != nil {
		obj, err := decodeObject(bundle)
		if err != nil {
			return err
		}
		dec, fieldErrs := c.DecryptObjectFields(obj, fields)
		if err := a.writeObject(dec); err != nil {
			return err
		}
		return fieldErrs.Err()
	}
	plain, err := c.DecryptField(bundle)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, plain)
	return err
}

// cipherAndValue builds the field cipher from ENCRYPTION_KEY, or a key typed
// without echo, and takes the value from the first argument or stdin.
// With -fields the value is a JSON object and only the named keys are
// processed; fields is nil otherwise.
func (a *App) cipherAndValue(name string, args []string, prompt string) (*cryptox.FieldCipher, string, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.prompt)
	minLen := fs.Int("min", 16, "minimum encryption key length")
	fieldList := fs.String("fields", "", "comma separated keys of a JSON object read as the value")
	if err := fs.Parse(args); err != nil {
		return nil, "", nil, err
	}

	var fields []string
	if *fieldList != "" {
		fields = []string{}
		for _, f := range strings.Split(*fieldList, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}

	key, ok := a.lookupEnv(encryptionKeyEnv)
	if !ok || key == "" {
		raw, err := a.readSecret("Encryption key: ")
		if err != nil {
			return nil, "", nil, err
		}
		key = string(raw)
		common.WipeByteArray(raw)
	}

	c, err := cryptox.NewFieldCipher(key, *minLen)
	if err != nil {
		return nil, "", nil, err
	}

	if fs.NArg() > 0 {
		return c, fs.Arg(0), fields, nil
	}
	value, err := a.readLine(prompt)
	return c, value, fields, err
}

// token mints a session token with the server's configured secret and TTL.
// Server config sources apply: -c file, JWT_SECRET / JWT_EXPIRES_IN, -s, -t.
func (a *App) token(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(a.prompt)
	subject := fs.String("id", "", "subject user id")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-id", "--id"})); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("token: -id is required")
	}

	cfg, err := config.Load(args, a.lookupEnv)
	if err != nil {
		return err
	}
	ta, err := auth.NewTokenAuthority([]byte(cfg.JWTSecret), cfg.JWTTTL)
	if err != nil {
		return err
	}
	tok, err := ta.Issue(*subject)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, tok)
	return err
}

// upload PUTs an avatar file to a presigned URL returned by
// POST /api/v1/profile/{userId}/avatar.
func (a *App) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(a.prompt)
	url := fs.String("url", "", "presigned PUT URL")
	contentType := fs.String("type", "", "content type the URL was signed for (detected when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *url == "" || fs.NArg() != 1 {
		return errors.New("usage: fitctl upload -url <presigned-url> [-type image/png] <file>")
	}

	body, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	ct := *contentType
	if ct == "" {
		ct = http.DetectContentType(body)
	}

	if err := netx.PutPresigned(ctx, a.client, *url, ct, body); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "uploaded %d bytes as %s\n", len(body), ct)
	return err
}

func decodeObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("value must be a JSON object: %w", err)
	}
	return obj, nil
}

func (a *App) writeObject(obj map[string]any) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func (a *App) readSecret(prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(a.prompt, prompt); err != nil {
		return nil, err
	}
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.prompt)
	if err != nil {
		return nil, fmt.Errorf("read secret: %w", err)
	}
	return b, nil
}

func (a *App) readLine(prompt string) (string, error) {
	if _, err := fmt.Fprint(a.prompt, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
