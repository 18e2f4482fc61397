package mongodb

import "testing"

func TestBuildURI(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
		want string
	}{
		{
			name: "explicit uri passthrough",
			opts: &Options{URI: "mongodb+srv://cluster0.example.net/app", Host: "ignored"},
			want: "mongodb+srv://cluster0.example.net/app",
		},
		{
			name: "host and port",
			opts: &Options{Host: "localhost", Port: 27017, Database: "app"},
			want: "mongodb://localhost:27017/app",
		},
		{
			name: "credentials",
			opts: &Options{Host: "db", Port: 27017, Username: "svc", Password: "secret", Database: "app"},
			want: "mongodb://svc:secret@db:27017/app",
		},
		{
			name: "credentials escaped",
			opts: &Options{Host: "db", Port: 27017, Username: "svc", Password: "p@ss/w", Database: "app"},
			want: "mongodb://svc:p%40ss%2Fw@db:27017/app",
		},
		{
			name: "no port no database",
			opts: &Options{Host: "db"},
			want: "mongodb://db/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildURI(tt.opts); got != tt.want {
				t.Errorf("BuildURI() = %q, want %q", got, tt.want)
			}
		})
	}
}
