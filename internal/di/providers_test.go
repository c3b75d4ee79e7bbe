package di

import (
	"testing"

	internalrepo "SellingView/internal/repository"
	"SellingView/internal/service/crm"
	"SellingView/pkg/config"
	applogger "SellingView/pkg/logger"
)

func TestProvideOrderSourceSelection(t *testing.T) {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	cfg := &config.Config{}
	cfg.Analysis.Source = "storage"
	if _, ok := ProvideOrderSource(cfg, nil, l).(*internalrepo.StorageOrderSource); !ok {
		t.Fatalf("expected storage-backed order source for analysis.source=storage")
	}

	cfg.Analysis.Source = "crm"
	if _, ok := ProvideOrderSource(cfg, nil, l).(*crm.Client); !ok {
		t.Fatalf("expected CRM client for analysis.source=crm")
	}
}
