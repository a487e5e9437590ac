package providers

import (
	"github.com/smallbiznis/newsexpress/internal/providers/email"
	"github.com/smallbiznis/newsexpress/internal/providers/pdf"
	"github.com/smallbiznis/newsexpress/internal/providers/sms"
	"github.com/smallbiznis/newsexpress/internal/providers/spreadsheet"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	sms.Module,
	pdf.Module,
	spreadsheet.Module,
)
