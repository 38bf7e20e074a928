package cpf

import "fmt"

func ExampleValidate() {
	fmt.Println(Validate("529.982.247-25"))
	fmt.Println(Validate("111.111.111-11"))

	// Output:
	// true
	// false
}

func ExampleFormat() {
	fmt.Println(Format("52998224725"))

	// Output:
	// 529.982.247-25
}

func ExampleClean() {
	fmt.Println(Clean("529.982.247-25"))

	// Output:
	// 52998224725
}
