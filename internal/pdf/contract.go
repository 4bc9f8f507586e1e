package pdf

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/jung-kurt/gofpdf"

	"shopemx/internal/models"
)

// Generator: интерфейс (удобно мокать в тестах)
type Generator interface {
	GenerateSaleContract(data ContractData) ([]byte, error)
	GeneratePurchaseContract(data PurchaseContractData) ([]byte, error)
}

// Party: реквизиты стороны договора. Пустые поля печатаются как прочерк.
type Party struct {
	LastName   string
	FirstName  string
	MiddleName string

	PassportSeries    string
	PassportNumber    string
	PassportIssuedBy  string
	PassportIssueDate *time.Time
	// если задан, печатается вместо паспорта
	AlternativeDocument string

	BankName       string
	BankBik        string
	BankAccount    string
	BankCorAccount string
}

func (p Party) FullName() string {
	name := p.LastName + " " + p.FirstName
	if p.MiddleName != "" {
		name += " " + p.MiddleName
	}
	return name
}

// ShortName: "Иванов И. И."
func (p Party) ShortName() string {
	name := p.LastName
	if r := []rune(p.FirstName); len(r) > 0 {
		name += " " + string(r[0]) + "."
	}
	if r := []rune(p.MiddleName); len(r) > 0 {
		name += " " + string(r[0]) + "."
	}
	return name
}

type ContractData struct {
	OfferID            int64
	ContractType       models.ContractType
	LicenseType        models.LicenseType
	IsPerpetual        bool
	LicenseDuration    int
	IsFree             bool
	Price              string
	ArtworkTitle       string
	ArtworkDescription string
	Seller             Party
	City               string
	Date               time.Time
}

type PurchaseContractData struct {
	ContractData
	Buyer Party
}

// DejaVu Sans Condensed из дистрибутива gofpdf: кириллица без внешних файлов.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	regularTTF []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	boldTTF []byte
)

// DocumentGenerator: реализация на gofpdf
type DocumentGenerator struct {
	FontPath string // необязательный TTF вместо встроенного шрифта
	fontName string // внутреннее имя шрифта в PDF
}

func NewDocumentGenerator(fontPath string) *DocumentGenerator {
	return &DocumentGenerator{FontPath: fontPath, fontName: "DejaVu"}
}

// ContractTitle: заголовок договора по типу передачи прав.
func ContractTitle(ct models.ContractType, lt models.LicenseType) string {
	if ct == models.ContractExclusiveRights {
		return "Договор об отчуждении исключительного права"
	}
	kind := "неисключительная"
	if lt == models.LicenseExclusive {
		kind = "исключительная"
	}
	return fmt.Sprintf("Лицензионный договор (%s лицензия)", kind)
}

func PriceText(isFree bool, price string) string {
	if isFree || price == "" {
		return "Безвозмездно"
	}
	return price + " руб."
}

func DurationText(isPerpetual bool, years int) string {
	if isPerpetual || years <= 0 {
		return "Бессрочно"
	}
	return fmt.Sprintf("%d %s", years, yearsWord(years))
}

func yearsWord(n int) string {
	switch {
	case n%100 >= 11 && n%100 <= 14:
		return "лет"
	case n%10 == 1:
		return "год"
	case n%10 >= 2 && n%10 <= 4:
		return "года"
	}
	return "лет"
}

func (g *DocumentGenerator) GenerateSaleContract(data ContractData) ([]byte, error) {
	d, err := g.newDoc(ContractTitle(data.ContractType, data.LicenseType), data)
	if err != nil {
		return nil, err
	}

	d.parties(fmt.Sprintf(
		"%s, именуемый в дальнейшем \"Правообладатель\", с одной стороны, и ___________________________, "+
			"именуемый в дальнейшем \"Приобретатель\", с другой стороны, заключили настоящий Договор о нижеследующем:",
		data.Seller.FullName()))

	d.subject(data, "Правообладатель", "Приобретателю")

	d.section("3. Ответственность сторон")
	d.paragraph("3.1. За неисполнение или ненадлежащее исполнение обязательств по настоящему Договору " +
		"Стороны несут ответственность в соответствии с действующим законодательством.")

	d.section("4. Реквизиты сторон")
	d.requisites("Правообладатель", data.Seller)
	d.blankRequisites("Приобретатель")

	d.signatures("Правообладатель", data.Seller.ShortName(), "Приобретатель", "________________")
	return d.output()
}

func (g *DocumentGenerator) GeneratePurchaseContract(data PurchaseContractData) ([]byte, error) {
	d, err := g.newDoc("Договор купли-продажи интеллектуальной собственности", data.ContractData)
	if err != nil {
		return nil, err
	}

	d.parties(fmt.Sprintf(
		"%s, именуемый в дальнейшем \"Продавец\", с одной стороны, и %s, именуемый в дальнейшем \"Покупатель\", "+
			"с другой стороны, заключили настоящий Договор о нижеследующем:",
		data.Seller.FullName(), data.Buyer.FullName()))

	d.subject(data.ContractData, "Продавец", "Покупателю")

	d.section("3. Ответственность сторон")
	d.paragraph("3.1. За неисполнение или ненадлежащее исполнение обязательств по настоящему Договору " +
		"Стороны несут ответственность в соответствии с действующим законодательством.")

	d.section("4. Реквизиты сторон")
	d.requisites("Продавец", data.Seller)
	d.requisites("Покупатель", data.Buyer)

	d.signatures("Продавец", data.Seller.ShortName(), "Покупатель", data.Buyer.ShortName())
	return d.output()
}

// doc: один документ в процессе сборки.
type doc struct {
	pdf  *gofpdf.Fpdf
	font string
}

// fonts возвращает TTF для обычного и жирного начертания.
func (g *DocumentGenerator) fonts() (regular, bold []byte, err error) {
	if g.FontPath == "" {
		return regularTTF, boldTTF, nil
	}
	b, err := os.ReadFile(g.FontPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load font %s: %w", g.FontPath, err)
	}
	return b, b, nil
}

func (g *DocumentGenerator) newDoc(title string, data ContractData) (*doc, error) {
	regular, bold, err := g.fonts()
	if err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddUTF8FontFromBytes(g.fontName, "", regular)
	pdf.AddUTF8FontFromBytes(g.fontName, "B", bold)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("register font: %w", err)
	}

	d := &doc{pdf: pdf, font: g.fontName}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("ShopEMX", true)

	// ===== Нумерация страниц
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(d.font, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Стр. %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// ===== Заголовок
	pdf.SetFont(d.font, "B", 14)
	pdf.MultiCell(0, 8, title, "", "C", false)

	city := data.City
	if city == "" {
		city = "Москва"
	}
	date := data.Date
	if date.IsZero() {
		date = time.Now()
	}
	pdf.SetFont(d.font, "", 11)
	pdf.CellFormat(85, 7, "г. "+city, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, date.Format("02.01.2006"), "", 1, "R", false, 0, "")
	d.hr()
	return d, nil
}

func (d *doc) subject(data ContractData, grantor, grantee string) {
	d.section("1. Предмет договора")
	d.paragraph(fmt.Sprintf("1.1. %s передает %s права на произведение:", grantor, grantee))
	d.kvLine("Название", data.ArtworkTitle)
	d.kvLine("Описание", data.ArtworkDescription)

	d.section("2. Условия договора")
	d.paragraph("2.1. Стоимость передачи прав: " + PriceText(data.IsFree, data.Price))
	if data.ContractType == models.ContractExclusiveRights {
		d.paragraph(fmt.Sprintf("2.2. По настоящему Договору %s передает %s исключительное право на произведение в полном объеме.",
			grantor, grantee))
		return
	}
	kind := "неисключительную"
	if data.LicenseType == models.LicenseExclusive {
		kind = "исключительную"
	}
	d.paragraph(fmt.Sprintf("2.2. По настоящему Договору %s предоставляет %s %s лицензию на использование произведения.",
		grantor, grantee, kind))
	d.paragraph("2.3. Срок действия лицензии: " + DurationText(data.IsPerpetual, data.LicenseDuration))
}

func (d *doc) parties(text string) {
	d.pdf.Ln(2)
	d.paragraph(text)
	d.pdf.Ln(1)
}

func (d *doc) requisites(role string, p Party) {
	d.pdf.SetFont(d.font, "B", 11)
	d.pdf.CellFormat(0, 7, role+":", "", 1, "L", false, 0, "")
	d.kvLine("ФИО", p.FullName())
	if p.AlternativeDocument != "" {
		d.kvLine("Документ", p.AlternativeDocument)
	} else {
		d.kvLine("Паспорт", dash(p.PassportSeries+" "+p.PassportNumber))
		issued := p.PassportIssuedBy
		if p.PassportIssueDate != nil {
			issued += ", " + p.PassportIssueDate.Format("02.01.2006")
		}
		d.kvLine("Выдан", dash(issued))
	}
	d.kvLine("Банк", dash(p.BankName))
	d.kvLine("БИК", dash(p.BankBik))
	d.kvLine("Счет", dash(p.BankAccount))
	d.kvLine("К/с", dash(p.BankCorAccount))
	d.pdf.Ln(2)
}

func (d *doc) blankRequisites(role string) {
	d.pdf.SetFont(d.font, "B", 11)
	d.pdf.CellFormat(0, 7, role+":", "", 1, "L", false, 0, "")
	d.pdf.SetFont(d.font, "", 11)
	for i := 0; i < 3; i++ {
		d.pdf.CellFormat(0, 6, "_________________________", "", 1, "L", false, 0, "")
	}
	d.pdf.Ln(2)
}

func (d *doc) signatures(leftRole, leftName, rightRole, rightName string) {
	d.section("5. Подписи сторон")
	d.pdf.Ln(6)
	d.pdf.SetFont(d.font, "", 11)
	d.pdf.CellFormat(85, 6, leftRole, "", 0, "L", false, 0, "")
	d.pdf.CellFormat(0, 6, rightRole, "", 1, "L", false, 0, "")

	y := d.pdf.GetY() + 8
	d.pdf.SetLineWidth(0.3)
	d.pdf.Line(20, y, 95, y)
	d.pdf.Line(105, y, 190, y)
	d.pdf.SetY(y + 1)
	d.pdf.SetFont(d.font, "", 9)
	d.pdf.CellFormat(85, 5, "(подпись) / "+leftName, "", 0, "L", false, 0, "")
	d.pdf.CellFormat(0, 5, "(подпись) / "+rightName, "", 1, "L", false, 0, "")
}

func (d *doc) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// === helpers ===
func (d *doc) section(s string) {
	d.pdf.Ln(2)
	d.pdf.SetFont(d.font, "B", 12)
	d.pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	d.pdf.SetFont(d.font, "", 11)
}

func (d *doc) paragraph(s string) {
	d.pdf.SetFont(d.font, "", 11)
	d.pdf.MultiCell(0, 6, s, "", "L", false)
}

func (d *doc) kvLine(key, val string) {
	d.pdf.SetFont(d.font, "B", 11)
	d.pdf.CellFormat(35, 6, key+":", "", 0, "L", false, 0, "")
	d.pdf.SetFont(d.font, "", 11)
	d.pdf.MultiCell(0, 6, val, "", "L", false)
}

func (d *doc) hr() {
	y := d.pdf.GetY() + 1.5
	d.pdf.SetLineWidth(0.2)
	d.pdf.Line(20, y, 190, y)
	d.pdf.SetY(y + 2)
}

func dash(s string) string {
	for _, r := range s {
		if r != ' ' && r != ',' {
			return s
		}
	}
	return "—"
}
