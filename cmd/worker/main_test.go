package main

import (
	"testing"

	"github.com/odyssey-erp/docplan/internal/app"
	_ "github.com/odyssey-erp/docplan/testing"
)

func TestMainSkipsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	if !app.InTestMode() {
		t.Fatal("expected DOCPLAN_TEST_MODE to be set by the testing package")
	}
	main()
}
