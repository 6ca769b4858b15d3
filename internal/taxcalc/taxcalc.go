// Package taxcalc estimates the monthly federal and local taxes of a company
// under each Brazilian tax regime. The tables are simplified and meant for
// comparison, not for filing.
package taxcalc

import (
	"errors"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// ErrInvalidRegime is returned for unknown regimes.
	ErrInvalidRegime = errors.New("taxcalc: invalid regime")
	// ErrInvalidActivity is returned for unknown activities.
	ErrInvalidActivity = errors.New("taxcalc: invalid activity")
	// ErrInvalidRevenue is returned when revenue is not positive.
	ErrInvalidRevenue = errors.New("taxcalc: revenue must be positive")
	// ErrProfitRequired is returned for lucro_real without a profit figure.
	ErrProfitRequired = errors.New("taxcalc: profit required for lucro_real")
	// ErrAboveSimplesLimit is returned when annualized revenue exceeds the Simples ceiling.
	ErrAboveSimplesLimit = errors.New("taxcalc: revenue above simples nacional limit")
)

// Regime is the tax regime being simulated.
type Regime string

const (
	SimplesNacional Regime = "simples_nacional"
	LucroPresumido  Regime = "lucro_presumido"
	LucroReal       Regime = "lucro_real"
)

// Activity is the company's main line of business.
type Activity string

const (
	Comercio  Activity = "comercio"
	Servicos  Activity = "servicos"
	Industria Activity = "industria"
)

func (a Activity) valid() bool {
	return a == Comercio || a == Servicos || a == Industria
}

// Input describes one simulation.
type Input struct {
	Regime   Regime   `json:"regime" validate:"required,oneof=simples_nacional lucro_presumido lucro_real"`
	Activity Activity `json:"activity" validate:"required,oneof=comercio servicos industria"`
	// Revenue is the gross monthly revenue in reais.
	Revenue float64 `json:"revenue" validate:"gt=0"`
	// Profit is the monthly accounting profit, used by lucro_real only.
	Profit *float64 `json:"profit,omitempty" validate:"omitempty,gte=0"`
}

// Tax is one line of the estimate.
type Tax struct {
	Name      string  `json:"name"`
	Base      float64 `json:"base"`
	Rate      float64 `json:"rate"`
	Amount    float64 `json:"amount"`
	Formatted string  `json:"formatted"`
}

// Result is the full estimate.
type Result struct {
	Regime         Regime   `json:"regime"`
	Activity       Activity `json:"activity"`
	Revenue        float64  `json:"revenue"`
	Taxes          []Tax    `json:"taxes"`
	Total          float64  `json:"total"`
	TotalFormatted string   `json:"total_formatted"`
	// EffectiveRate is Total over Revenue, as a fraction.
	EffectiveRate float64 `json:"effective_rate"`
}

const (
	irpjRate          = 0.15
	irpjSurchargeRate = 0.10
	// irpjSurchargeFloor is the monthly base above which the IRPJ surcharge applies.
	irpjSurchargeFloor = 20000.0
	csllRate           = 0.09
	issRate            = 0.05
	icmsRate           = 0.18
)

// Simulate computes the estimate for in. It performs no I/O.
func Simulate(in Input) (Result, error) {
	if !in.Activity.valid() {
		return Result{}, ErrInvalidActivity
	}
	if !(in.Revenue > 0) || math.IsInf(in.Revenue, 0) {
		return Result{}, ErrInvalidRevenue
	}

	var (
		taxes []Tax
		err   error
	)
	switch in.Regime {
	case SimplesNacional:
		taxes, err = simples(in)
	case LucroPresumido:
		taxes = lucroPresumido(in)
	case LucroReal:
		taxes, err = lucroReal(in)
	default:
		return Result{}, ErrInvalidRegime
	}
	if err != nil {
		return Result{}, err
	}

	res := Result{Regime: in.Regime, Activity: in.Activity, Revenue: roundCents(in.Revenue), Taxes: taxes}
	for _, t := range taxes {
		res.Total += t.Amount
	}
	res.Total = roundCents(res.Total)
	res.TotalFormatted = FormatBRL(res.Total)
	res.EffectiveRate = math.Round(res.Total/in.Revenue*10000) / 10000
	return res, nil
}

type bracket struct {
	ceiling   float64
	rate      float64
	deduction float64
}

// Simples Nacional annexes I (comércio), II (indústria) and III (serviços).
var simplesAnnexes = map[Activity][]bracket{
	Comercio: {
		{180000, 0.04, 0}, {360000, 0.073, 5940}, {720000, 0.095, 13860},
		{1800000, 0.107, 22500}, {3600000, 0.143, 87300}, {4800000, 0.19, 378000},
	},
	Industria: {
		{180000, 0.045, 0}, {360000, 0.078, 5940}, {720000, 0.10, 13860},
		{1800000, 0.112, 22500}, {3600000, 0.147, 85500}, {4800000, 0.30, 720000},
	},
	Servicos: {
		{180000, 0.06, 0}, {360000, 0.112, 9360}, {720000, 0.135, 17640},
		{1800000, 0.16, 35640}, {3600000, 0.21, 125640}, {4800000, 0.33, 648000},
	},
}

// simples applies the effective DAS rate derived from the annualized revenue.
func simples(in Input) ([]Tax, error) {
	annual := in.Revenue * 12
	for _, b := range simplesAnnexes[in.Activity] {
		if annual > b.ceiling {
			continue
		}
		rate := (annual*b.rate - b.deduction) / annual
		rate = math.Round(rate*10000) / 10000
		return []Tax{line("DAS", in.Revenue, rate)}, nil
	}
	return nil, ErrAboveSimplesLimit
}

// Presumed profit as a share of revenue, for IRPJ and CSLL.
func presumedBases(a Activity) (irpj, csll float64) {
	if a == Servicos {
		return 0.32, 0.32
	}
	return 0.08, 0.12
}

func lucroPresumido(in Input) []Tax {
	irpjShare, csllShare := presumedBases(in.Activity)
	irpjBase := in.Revenue * irpjShare
	taxes := []Tax{line("IRPJ", irpjBase, irpjRate)}
	if surcharge := irpjBase - irpjSurchargeFloor; surcharge > 0 {
		taxes = append(taxes, line("IRPJ adicional", surcharge, irpjSurchargeRate))
	}
	taxes = append(taxes,
		line("CSLL", in.Revenue*csllShare, csllRate),
		line("PIS", in.Revenue, 0.0065),
		line("COFINS", in.Revenue, 0.03),
	)
	return append(taxes, localTax(in))
}

func lucroReal(in Input) ([]Tax, error) {
	if in.Profit == nil {
		return nil, ErrProfitRequired
	}
	profit := *in.Profit
	taxes := []Tax{line("IRPJ", profit, irpjRate)}
	if surcharge := profit - irpjSurchargeFloor; surcharge > 0 {
		taxes = append(taxes, line("IRPJ adicional", surcharge, irpjSurchargeRate))
	}
	taxes = append(taxes,
		line("CSLL", profit, csllRate),
		line("PIS", in.Revenue, 0.0165),
		line("COFINS", in.Revenue, 0.076),
	)
	return append(taxes, localTax(in)), nil
}

// localTax is ISS for services and ICMS otherwise.
func localTax(in Input) Tax {
	if in.Activity == Servicos {
		return line("ISS", in.Revenue, issRate)
	}
	return line("ICMS", in.Revenue, icmsRate)
}

func line(name string, base, rate float64) Tax {
	amount := roundCents(base * rate)
	return Tax{Name: name, Base: roundCents(base), Rate: rate, Amount: amount, Formatted: FormatBRL(amount)}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatBRL renders v as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(v float64) string {
	return message.NewPrinter(language.BrazilianPortuguese).Sprintf("R$ %.2f", v)
}
