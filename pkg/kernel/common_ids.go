package kernel

type TenantID string

func NewTenantID(id string) TenantID { return TenantID(id) }
func (t TenantID) String() string    { return string(t) }
func (t TenantID) IsEmpty() bool     { return string(t) == "" }

type ApplicationID string

func NewApplicationID(id string) ApplicationID { return ApplicationID(id) }
func (a ApplicationID) String() string         { return string(a) }
func (a ApplicationID) IsEmpty() bool          { return string(a) == "" }

type EndUserID string

func NewEndUserID(id string) EndUserID { return EndUserID(id) }
func (e EndUserID) String() string     { return string(e) }
func (e EndUserID) IsEmpty() bool      { return string(e) == "" }

// ClientID identifies an OAuth2 client. For a tenant it is the login account,
// for an application it is the application id.
type ClientID string

func NewClientID(id string) ClientID { return ClientID(id) }
func (c ClientID) String() string    { return string(c) }
func (c ClientID) IsEmpty() bool     { return string(c) == "" }
