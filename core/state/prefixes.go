package state

var (
	tokenPrefix         = []byte("token:")
	balancePrefix       = []byte("balance:")
	grantRecordPrefix   = []byte("grant/record:")
	grantPopStatePrefix = []byte("grant/pop-state:")
	grantReceiptPrefix  = []byte("grant/receipt:")
	grantPopConfPrefix  = []byte("grant/pop-config:")
)
