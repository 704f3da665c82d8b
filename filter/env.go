package filter

/*
Env is the environment available to target-filter expressions attached to
room broadcasts. Once this struct is fixed it should not be changed,
otherwise filters stored alongside history messages may not compile any
more (f.e. if properties are renamed).
*/

type User struct {
	Id         string
	Nick       string
	Tags       map[string]string
	LastOnline int64
}

type Sender struct {
	User
}

type Target struct {
	User
}

type Env struct {
	RoomId int64
	Sender
	Target
	Event string
}
