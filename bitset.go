package dtd

type parseFlag uint8

const (
	flagDuplicateWarnings parseFlag = 1 << iota
	flagSkipUnresolvable
	flagCDATASections
	flagReportWhitespace
)

func (p *parseFlag) Set(n parseFlag) {
	*p = *p | n
}

func (p *parseFlag) Unset(n parseFlag) {
	*p = *p &^ n
}

func (p parseFlag) IsSet(n parseFlag) bool {
	return p&n != 0
}

func (p *parseFlag) Toggle(n parseFlag, on bool) {
	if on {
		p.Set(n)
		return
	}
	p.Unset(n)
}
