package generators

import (
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/mmrzaf/tdgen/internal/domain"
)

// fakerFor wraps the run's rng so gofakeit draws from the same stream as the
// other columns. No process-wide faker state is touched.
func fakerFor(rng *rand.Rand) *gofakeit.Faker {
	return gofakeit.NewFaker(rng, false)
}

// FakerGenerator covers the parameterless string types backed by gofakeit.
type FakerGenerator struct {
	fn func(f *gofakeit.Faker) string
}

func NewFakerGenerator(fn func(f *gofakeit.Faker) string) *FakerGenerator {
	return &FakerGenerator{fn: fn}
}

func (g *FakerGenerator) Kind() domain.ValueKind { return domain.KindString }

func (g *FakerGenerator) Validate(params domain.ColumnParams) error { return allowOnly(params) }

func (g *FakerGenerator) Generate(rng *rand.Rand, params domain.ColumnParams) (any, error) {
	return g.fn(fakerFor(rng)), nil
}

func NameGenerator() *FakerGenerator {
	return NewFakerGenerator(func(f *gofakeit.Faker) string { return f.Name() })
}

func EmailGenerator() *FakerGenerator {
	return NewFakerGenerator(func(f *gofakeit.Faker) string { return f.Email() })
}

func PhoneGenerator() *FakerGenerator {
	return NewFakerGenerator(func(f *gofakeit.Faker) string { return f.PhoneFormatted() })
}

func AddressGenerator() *FakerGenerator {
	return NewFakerGenerator(func(f *gofakeit.Faker) string { return f.Address().Address })
}

func CompanyGenerator() *FakerGenerator {
	return NewFakerGenerator(func(f *gofakeit.Faker) string { return f.Company() })
}

func JobGenerator() *FakerGenerator {
	return NewFakerGenerator(func(f *gofakeit.Faker) string { return f.JobTitle() })
}

func URLGenerator() *FakerGenerator {
	return NewFakerGenerator(func(f *gofakeit.Faker) string { return f.URL() })
}

func IPAddressGenerator() *FakerGenerator {
	return NewFakerGenerator(func(f *gofakeit.Faker) string { return f.IPv4Address() })
}

func CreditCardGenerator() *FakerGenerator {
	return NewFakerGenerator(func(f *gofakeit.Faker) string { return f.CreditCardNumber(nil) })
}

const (
	defaultTextLength = 50
	maxTextLength     = 10000
)

type TextGenerator struct{}

func (g *TextGenerator) Kind() domain.ValueKind { return domain.KindString }

func (g *TextGenerator) Validate(params domain.ColumnParams) error {
	if err := allowOnly(params, "length"); err != nil {
		return err
	}
	if params.Length != nil && (*params.Length <= 0 || *params.Length > maxTextLength) {
		return invalid("length must be between 1 and %d, got %d", maxTextLength, *params.Length)
	}
	return nil
}

// Generate returns lorem words joined by spaces, at most length characters
// long, starting upper-case and ending with a period when it fits.
func (g *TextGenerator) Generate(rng *rand.Rand, params domain.ColumnParams) (any, error) {
	length := defaultTextLength
	if params.Length != nil {
		length = *params.Length
	}
	f := fakerFor(rng)

	var sb strings.Builder
	for utf8.RuneCountInString(sb.String()) < length {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(f.Word())
	}

	runes := []rune(sb.String())
	if len(runes) > length {
		runes = runes[:length]
	}
	text := strings.TrimRight(string(runes), " ")
	if text == "" {
		return text, nil
	}
	first, size := utf8.DecodeRuneInString(text)
	text = string(unicode.ToUpper(first)) + text[size:]
	if utf8.RuneCountInString(text) < length {
		text += "."
	}
	return text, nil
}
