package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors returned by the upload checks
var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file is empty")
)

// AcceptedExtensions are the listings export formats the reader understands
var AcceptedExtensions = []string{".csv", ".xlsx", ".xlsm"}

// Upload describes an incoming listings file before it is read
type Upload struct {
	Filename string `validate:"required,max=255,listingsfile"`
	Size     int64  `validate:"gt=0"`
}

// FileValidator provides file validation for the web host and the CLI
type FileValidator struct {
	logger   *slog.Logger
	validate *validator.Validate
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterValidation("listingsfile", isListingsFile)
	return &FileValidator{
		logger:   logger.With(slog.String("component", "file_validator")),
		validate: v,
	}
}

// isListingsFile accepts names with a supported extension that are not
// office lock files
func isListingsFile(fl validator.FieldLevel) bool {
	return hasAcceptedExtension(fl.Field().String())
}

func hasAcceptedExtension(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, accepted := range AcceptedExtensions {
		if ext == accepted {
			return true
		}
	}
	return false
}

// ValidateUpload checks an uploaded file's name and size. Rejections wrap
// ErrUnsupportedFile or ErrEmptyFile.
func (v *FileValidator) ValidateUpload(u Upload) error {
	err := v.validate.Struct(u)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		switch fe.StructField() {
		case "Size":
			v.logger.Warn("Rejected empty upload", slog.String("file", u.Filename))
			return fmt.Errorf("%s: %w", u.Filename, ErrEmptyFile)
		case "Filename":
			v.logger.Warn("Rejected upload",
				slog.String("file", u.Filename),
				slog.String("rule", fe.Tag()))
			return fmt.Errorf("%q: %w (accepted: %s)", u.Filename, ErrUnsupportedFile, strings.Join(AcceptedExtensions, ", "))
		}
	}
	return err
}

// ValidateInputFile checks that path is a readable listings file
func (v *FileValidator) ValidateInputFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	return v.ValidateUpload(Upload{Filename: filepath.Base(path), Size: info.Size()})
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a probe file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file", slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}
