package deployconf

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/deploy-installer/internal/gitremote"
)

// DefaultBranch is used when no branch is submitted.
const DefaultBranch = "main"

// Input is the raw step 3 form (or answers manifest) before normalisation.
type Input struct {
	SecretToken string `json:"secret_token" yaml:"secret_token" validate:"required,excludesall='\"\\"`
	RepoURL     string `json:"repo_url" yaml:"repo_url" validate:"required"`
	Branch      string `json:"branch" yaml:"branch"`
	TargetDir   string `json:"target_dir" yaml:"target_dir" validate:"required"`
}

// Values are the four user-supplied constants as written to the file.
type Values struct {
	SecretToken      string `json:"secret_token"`
	RemoteRepository string `json:"remote_repository"`
	Branch           string `json:"branch"`
	TargetDir        string `json:"target_dir"`
}

// ValidationError represents a field-level validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Write when required input is missing. The
// order follows the form: token, repository, target directory.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	return strings.Join(v.Messages(), "; ")
}

// Messages returns the operator-facing messages in order.
func (v ValidationErrors) Messages() []string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Message
	}
	return msgs
}

var validate = validator.New()

// fieldMessages maps "<StructField>.<tag>" to the operator-facing error.
var fieldMessages = map[string]ValidationError{
	"SecretToken.required": {Field: "secret_token", Message: "Secret access token is required"},
	"RepoURL.required":     {Field: "repo_url", Message: "Repository URL is required"},
	"TargetDir.required":   {Field: "target_dir", Message: "Target directory is required"},

	// IsFullyConfigured cannot read back an escaped quote.
	"SecretToken.excludesall": {Field: "secret_token", Message: "Secret access token must not contain quotes or backslashes"},
}

// Trimmed returns in with surrounding whitespace removed from every field.
func (in Input) Trimmed() Input {
	return Input{
		SecretToken: strings.TrimSpace(in.SecretToken),
		RepoURL:     strings.TrimSpace(in.RepoURL),
		Branch:      strings.TrimSpace(in.Branch),
		TargetDir:   strings.TrimSpace(in.TargetDir),
	}
}

// Validate trims in and checks the required fields. It returns nil when the
// input is complete.
func Validate(in Input) ValidationErrors {
	err := validate.Struct(in.Trimmed())
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Field: "", Message: err.Error()}}
	}
	var errs ValidationErrors
	for _, fe := range fieldErrs {
		if e, ok := fieldMessages[fe.StructField()+"."+fe.Tag()]; ok {
			errs = append(errs, e)
			continue
		}
		errs = append(errs, ValidationError{Field: fe.Field(), Message: fe.Error()})
	}
	return errs
}

// Normalize converts validated input into the values written to the file:
// the repository becomes an SSH remote, the branch defaults to main and the
// target directory gets a single trailing slash when it has none.
func Normalize(in Input) Values {
	in = in.Trimmed()
	v := Values{
		SecretToken:      in.SecretToken,
		RemoteRepository: gitremote.ToSSHRemote(in.RepoURL),
		Branch:           in.Branch,
		TargetDir:        in.TargetDir,
	}
	if v.Branch == "" {
		v.Branch = DefaultBranch
	}
	if v.TargetDir != "" && !strings.HasSuffix(v.TargetDir, "/") {
		v.TargetDir += "/"
	}
	return v
}
