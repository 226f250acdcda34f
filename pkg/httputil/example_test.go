package httputil_test

import (
	"fmt"

	"github.com/matzehuels/chromascribe/pkg/httputil"
)

func ExampleDecodeImageRef() {
	for _, body := range []string{
		`{"image":"https://cdn.example/out.png"}`,
		`["https://cdn.example/out-0.png"]`,
	} {
		ref, err := httputil.DecodeImageRef([]byte(body))
		fmt.Println(ref, err)
	}
	// Output:
	// https://cdn.example/out.png <nil>
	// https://cdn.example/out-0.png <nil>
}

func ExampleEncodeDataURL() {
	u := httputil.EncodeDataURL("image/png", []byte("hi"))
	fmt.Println(u)
	mime, data, _ := httputil.DecodeDataURL(u)
	fmt.Println(mime, string(data))
	// Output:
	// data:image/png;base64,aGk=
	// image/png hi
}
