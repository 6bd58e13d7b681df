package distill

import (
	"errors"
	"fmt"

	"github.com/yhilem/distill/extract"
	"github.com/yhilem/distill/ocr"
	"github.com/yhilem/distill/plugin"
)

// RegistryService holds the four plugin registries a pipeline consults:
// custom extractors, OCR backends, post-processors, and validators.
// It is safe for concurrent use.
type RegistryService struct {
	extractors     *plugin.Registry[extract.Extractor]
	ocrBackends    *plugin.Registry[ocr.Backend]
	postProcessors *plugin.Registry[extract.PostProcessor]
	validators     *plugin.Registry[extract.Validator]
}

// NewRegistryService returns a service with empty registries.
func NewRegistryService() *RegistryService {
	return &RegistryService{
		extractors:     plugin.New[extract.Extractor](),
		ocrBackends:    plugin.New[ocr.Backend](),
		postProcessors: plugin.New[extract.PostProcessor](),
		validators:     plugin.New[extract.Validator](),
	}
}

// RegisterExtractor adds a custom extractor. Higher priority wins over
// built-ins; duplicates are rejected with ErrDuplicatePlugin.
func (s *RegistryService) RegisterExtractor(priority int, e extract.Extractor) error {
	return wrapDuplicate(s.extractors.Register(e.Name(), priority, e))
}

// UnregisterExtractor removes a custom extractor; unknown names are a
// no-op.
func (s *RegistryService) UnregisterExtractor(name string) {
	s.extractors.Unregister(name)
}

// RegisterOCRBackend adds an OCR backend under its name.
func (s *RegistryService) RegisterOCRBackend(priority int, b ocr.Backend) error {
	return wrapDuplicate(s.ocrBackends.Register(b.Name(), priority, b))
}

// UnregisterOCRBackend removes an OCR backend.
func (s *RegistryService) UnregisterOCRBackend(name string) {
	s.ocrBackends.Unregister(name)
}

// OCRBackend returns the named backend, or the highest-priority one
// when name is empty.
func (s *RegistryService) OCRBackend(name string) (ocr.Backend, error) {
	if name != "" {
		b, ok := s.ocrBackends.Get(name)
		if !ok {
			return nil, fmt.Errorf("distill: ocr backend %q not registered", name)
		}
		return b, nil
	}
	all := s.ocrBackends.All()
	if len(all) == 0 {
		return nil, ocr.ErrNoBackend
	}
	return all[0].Handler, nil
}

// RegisterPostProcessor adds a post-processor. Post-processors run in
// descending priority order after extraction.
func (s *RegistryService) RegisterPostProcessor(priority int, p extract.PostProcessor) error {
	return wrapDuplicate(s.postProcessors.Register(p.Name(), priority, p))
}

// UnregisterPostProcessor removes a post-processor.
func (s *RegistryService) UnregisterPostProcessor(name string) {
	s.postProcessors.Unregister(name)
}

// RegisterValidator adds a validator. Validators run in descending
// priority order after post-processing; the first failure aborts.
func (s *RegistryService) RegisterValidator(priority int, v extract.Validator) error {
	return wrapDuplicate(s.validators.Register(v.Name(), priority, v))
}

// UnregisterValidator removes a validator.
func (s *RegistryService) UnregisterValidator(name string) {
	s.validators.Unregister(name)
}

// ListExtractors returns registered custom extractor names, sorted.
func (s *RegistryService) ListExtractors() []string { return s.extractors.List() }

// ListOCRBackends returns registered OCR backend names, sorted.
func (s *RegistryService) ListOCRBackends() []string { return s.ocrBackends.List() }

// ListPostProcessors returns registered post-processor names, sorted.
func (s *RegistryService) ListPostProcessors() []string { return s.postProcessors.List() }

// ListValidators returns registered validator names, sorted.
func (s *RegistryService) ListValidators() []string { return s.validators.List() }

// ClearExtractors removes every custom extractor.
func (s *RegistryService) ClearExtractors() { s.extractors.Clear() }

// ClearOCRBackends removes every OCR backend.
func (s *RegistryService) ClearOCRBackends() { s.ocrBackends.Clear() }

// ClearPostProcessors removes every post-processor.
func (s *RegistryService) ClearPostProcessors() { s.postProcessors.Clear() }

// ClearValidators removes every validator.
func (s *RegistryService) ClearValidators() { s.validators.Clear() }

// Clear empties every registry. Intended for tests and embedders that
// reconfigure at runtime.
func (s *RegistryService) Clear() {
	s.ClearExtractors()
	s.ClearOCRBackends()
	s.ClearPostProcessors()
	s.ClearValidators()
}

func wrapDuplicate(err error) error {
	if errors.Is(err, plugin.ErrDuplicateName) {
		return fmt.Errorf("%w: %v", ErrDuplicatePlugin, err)
	}
	return err
}
