package listing

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CartForm is the add-to-cart form of an offer row.
type CartForm struct {
	Action string
	Method string

	// Fields holds the hidden inputs submitted with every request.
	Fields url.Values

	// AmountField is the name of the quantity select, if any.
	AmountField string
	// Amounts lists the selectable quantities in order.
	Amounts []string
}

// Values returns the form values for a submission of amount items.
// An empty amount selects the first option.
func (f *CartForm) Values(amount string) url.Values {
	values := url.Values{}
	for k, v := range f.Fields {
		values[k] = append([]string(nil), v...)
	}
	if f.AmountField != "" {
		if amount == "" && len(f.Amounts) > 0 {
			amount = f.Amounts[0]
		}
		if amount != "" {
			values.Set(f.AmountField, amount)
		}
	}
	return values
}

func parseCartForm(row *goquery.Selection, id string, doc *goquery.Document) *CartForm {
	form := row.Find("form").First()
	if form.Length() == 0 {
		return nil
	}

	action, _ := form.Attr("action")
	method, _ := form.Attr("method")
	if method == "" {
		method = "post"
	}

	f := &CartForm{
		Action: resolve(doc, action),
		Method: strings.ToUpper(method),
		Fields: url.Values{},
	}

	form.Find("input[type='hidden']").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		value, _ := input.Attr("value")
		f.Fields.Add(name, value)
	})

	sel := row.Find("select#amount" + id).First()
	if sel.Length() > 0 {
		f.AmountField, _ = sel.Attr("name")
		if f.AmountField == "" {
			f.AmountField = "amount"
		}
		sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
			v, ok := opt.Attr("value")
			if !ok {
				v = strings.TrimSpace(opt.Text())
			}
			f.Amounts = append(f.Amounts, v)
		})
	}

	return f
}
