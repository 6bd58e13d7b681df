package distill

import (
	"context"
	"errors"
	"testing"

	"github.com/yhilem/distill/ocr"
)

type nullOCR struct{ name string }

func (n *nullOCR) Name() string { return n.name }

func (n *nullOCR) ProcessImage(ctx context.Context, image []byte, opts ocr.Options) (string, error) {
	return "", nil
}

func TestRegistryDuplicateRejected(t *testing.T) {
	reg := NewRegistryService()
	ext := &countingExtractor{}
	if err := reg.RegisterExtractor(1, ext); err != nil {
		t.Fatal(err)
	}
	err := reg.RegisterExtractor(2, ext)
	if !errors.Is(err, ErrDuplicatePlugin) {
		t.Errorf("error = %v, want ErrDuplicatePlugin", err)
	}

	// Unregister frees the name for re-registration.
	reg.UnregisterExtractor(ext.Name())
	if err := reg.RegisterExtractor(2, ext); err != nil {
		t.Errorf("re-register after unregister: %v", err)
	}
}

func TestRegistryUnregisterUnknownIsNoOp(t *testing.T) {
	reg := NewRegistryService()
	reg.UnregisterExtractor("ghost")
	reg.UnregisterOCRBackend("ghost")
	reg.UnregisterPostProcessor("ghost")
	reg.UnregisterValidator("ghost")
}

func TestOCRBackendSelection(t *testing.T) {
	reg := NewRegistryService()
	if _, err := reg.OCRBackend(""); !errors.Is(err, ocr.ErrNoBackend) {
		t.Errorf("error = %v, want ErrNoBackend", err)
	}

	low := &nullOCR{name: "low"}
	high := &nullOCR{name: "high"}
	reg.RegisterOCRBackend(1, low)
	reg.RegisterOCRBackend(9, high)

	b, err := reg.OCRBackend("")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "high" {
		t.Errorf("default backend = %q, want highest priority", b.Name())
	}

	b, err = reg.OCRBackend("low")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "low" {
		t.Errorf("named backend = %q, want low", b.Name())
	}

	if _, err := reg.OCRBackend("ghost"); err == nil {
		t.Error("unknown backend name should error")
	}
}

func TestRegistryClearPerKind(t *testing.T) {
	reg := NewRegistryService()
	reg.RegisterExtractor(1, &countingExtractor{})
	reg.RegisterOCRBackend(1, &nullOCR{name: "b"})
	reg.RegisterPostProcessor(1, &appendProcessor{name: "p", marker: "x"})
	reg.RegisterValidator(1, validatorFunc("v", func() {}))

	reg.ClearValidators()
	if len(reg.ListValidators()) != 0 {
		t.Error("validators not empty after ClearValidators")
	}
	if len(reg.ListExtractors()) != 1 || len(reg.ListOCRBackends()) != 1 || len(reg.ListPostProcessors()) != 1 {
		t.Error("clearing validators emptied another registry")
	}

	reg.ClearExtractors()
	reg.ClearOCRBackends()
	reg.ClearPostProcessors()
	if len(reg.ListExtractors()) != 0 || len(reg.ListOCRBackends()) != 0 || len(reg.ListPostProcessors()) != 0 {
		t.Error("per-kind clears left registrations behind")
	}
}

func TestRegistryClear(t *testing.T) {
	reg := NewRegistryService()
	reg.RegisterExtractor(1, &countingExtractor{})
	reg.RegisterOCRBackend(1, &nullOCR{name: "b"})
	reg.Clear()
	if len(reg.ListExtractors()) != 0 || len(reg.ListOCRBackends()) != 0 {
		t.Error("registries not empty after Clear")
	}
}
