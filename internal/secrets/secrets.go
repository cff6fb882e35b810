// Package secrets resolves the CMS delivery token from one of three places:
// a literal value, an SSM SecureString parameter, or a KMS ciphertext.
package secrets

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/alberthiggs/folio/internal/xerrors"
)

// ErrNoSource is returned when no token source is configured.
var ErrNoSource = xerrors.New("no secret source configured")

// ParameterGetter is the SSM subset used here.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Decrypter is the KMS subset used here.
type Decrypter interface {
	Decrypt(ctx context.Context, in *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Source describes where a secret lives. The first non-empty field wins in
// the order Literal, SSMParam, KMSCiphertext.
type Source struct {
	Literal       string
	SSMParam      string
	KMSCiphertext string
}

// Kind names the source that will be used, for logging.
func (s Source) Kind() string {
	switch {
	case s.Literal != "":
		return "literal"
	case s.SSMParam != "":
		return "ssm"
	case s.KMSCiphertext != "":
		return "kms"
	}
	return "none"
}

// Resolver fetches secrets. Clients may be nil when their source is unused.
type Resolver struct {
	SSM ParameterGetter
	KMS Decrypter
}

// Resolve returns the trimmed secret value.
func (r Resolver) Resolve(ctx context.Context, s Source) (string, error) {
	switch s.Kind() {
	case "literal":
		return strings.TrimSpace(s.Literal), nil
	case "ssm":
		return r.fromSSM(ctx, s.SSMParam)
	case "kms":
		return r.fromKMS(ctx, s.KMSCiphertext)
	}
	return "", ErrNoSource
}

func (r Resolver) fromSSM(ctx context.Context, name string) (string, error) {
	if r.SSM == nil {
		return "", xerrors.New("ssm client not configured")
	}
	out, err := r.SSM.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", name)
	}
	v := strings.TrimSpace(*out.Parameter.Value)
	if v == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", name)
	}
	return v, nil
}

func (r Resolver) fromKMS(ctx context.Context, blob string) (string, error) {
	if r.KMS == nil {
		return "", xerrors.New("kms client not configured")
	}
	ct, err := base64.StdEncoding.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return "", xerrors.Wrap(err, "decode KMS ciphertext")
	}
	out, err := r.KMS.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: ct})
	if err != nil {
		return "", xerrors.Wrap(err, "kms decrypt")
	}
	v := strings.TrimSpace(string(out.Plaintext))
	if v == "" {
		return "", xerrors.New("kms plaintext is empty")
	}
	return v, nil
}
